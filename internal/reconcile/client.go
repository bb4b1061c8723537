package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dinein-system/internal/database/models"

	"github.com/google/uuid"
)

// APIClient reads orders from the gateway's staff endpoints. It serves as
// both the Poller and the Fetcher of a kitchen display.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *APIClient) OrdersSince(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]models.Order, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339Nano))
	q.Set("restaurant", restaurantID.String())

	var list []models.Order
	if err := c.get(ctx, "/api/v1/orders?"+q.Encode(), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *APIClient) FetchOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := c.get(ctx, "/api/v1/orders/"+id.String(), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *APIClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s: status %d: %w", path, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, env.Message)
	}
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
