// Package orders is the submission and staff-side path of an order: pricing a
// cart against the catalog, persisting it with its promotion redemption,
// moving it through the lifecycle and announcing every change.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dinein-system/internal/audit"
	"dinein-system/internal/database/models"
	"dinein-system/internal/lifecycle"
	"dinein-system/internal/pricing"
	"dinein-system/internal/promotion"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxPollResults caps one page of the poll endpoint.
const MaxPollResults = 100

var (
	ErrNotFound       = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Catalog interface {
	Products(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type PromotionValidator interface {
	Validate(ctx context.Context, code string, restaurantID uuid.UUID, subtotal decimal.Decimal) (promotion.Result, error)
}

type Repository interface {
	// Create stores the order with its items and, when promotionID is set,
	// redeems the promotion in the same transaction.
	Create(ctx context.Context, order *models.Order, promotionID *uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdatedSince(ctx context.Context, restaurantID uuid.UUID, since time.Time, limit int) ([]models.Order, error)
	// CompareAndSetStatus moves the order to "to" only if it is still in "from".
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	CreatedBetween(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]models.Order, error)
	LatestByPhone(ctx context.Context, restaurantID uuid.UUID, phone string) (*models.Order, error)
}

type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Notifier is told about every newly submitted order. Delivery is its own
// concern; it must not block or fail the submission.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order models.Order)
}

type QuoteRequest struct {
	RestaurantID  uuid.UUID   `json:"restaurant_id" binding:"required"`
	TableRef      string      `json:"table_ref,omitempty"`
	Items         []Selection `json:"items" binding:"required,min=1,dive"`
	PromotionCode string      `json:"promotion_code,omitempty"`
}

type SubmitRequest struct {
	QuoteRequest
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty" binding:"omitempty,email"`
	Notes         string `json:"notes,omitempty"`
}

type QuoteLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantName string          `json:"variant_name,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type Quote struct {
	Lines            []QuoteLine      `json:"lines"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	Discount         decimal.Decimal  `json:"discount"`
	Total            decimal.Decimal  `json:"total"`
	PromotionCode    string           `json:"promotion_code,omitempty"`
	PromotionValid   *bool            `json:"promotion_valid,omitempty"`
	PromotionReason  promotion.Reason `json:"promotion_reason,omitempty"`
	PromotionMessage string           `json:"promotion_message,omitempty"`
}

type Revenue struct {
	Date      string          `json:"date"`
	Orders    int             `json:"orders"`
	Gross     decimal.Decimal `json:"gross"`
	Discounts decimal.Decimal `json:"discounts"`
	Net       decimal.Decimal `json:"net"`
	ByStatus  map[string]int  `json:"by_status"`
}

type Service struct {
	catalog    Catalog
	promotions PromotionValidator
	repo       Repository
	publisher  Publisher
	notifier   Notifier
	auditor    audit.Recorder
	log        *zap.SugaredLogger
	now        func() time.Time
}

type Deps struct {
	Catalog    Catalog
	Promotions PromotionValidator
	Repo       Repository
	Publisher  Publisher
	Notifier   Notifier
	Auditor    audit.Recorder
	Log        *zap.SugaredLogger
}

func NewService(d Deps) *Service {
	s := &Service{
		catalog:    d.Catalog,
		promotions: d.Promotions,
		repo:       d.Repo,
		publisher:  d.Publisher,
		notifier:   d.Notifier,
		auditor:    d.Auditor,
		log:        d.Log,
		now:        time.Now,
	}
	if s.auditor == nil {
		s.auditor = audit.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	return s
}

func (s *Service) price(ctx context.Context, req QuoteRequest) (*pricing.Cart, error) {
	products, err := s.catalog.Products(ctx, req.RestaurantID, productIDs(req.Items))
	if err != nil {
		return nil, err
	}
	return buildCart(req.RestaurantID, req.TableRef, req.Items, products)
}

// Quote prices a cart without side effects. A rejected promotion is reported
// on the quote instead of failing it.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	cart, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal()
	q := &Quote{
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Total:    subtotal,
	}
	for _, l := range cart.Lines() {
		ql := QuoteLine{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			UnitPrice:   l.UnitPrice().Round(pricing.MinorUnits),
			Quantity:    l.Quantity,
			LineTotal:   l.Total(),
		}
		if l.Variant != nil {
			ql.VariantName = l.Variant.Name
		}
		q.Lines = append(q.Lines, ql)
	}

	if code := promotion.NormalizeCode(req.PromotionCode); code != "" {
		res, err := s.promotions.Validate(ctx, code, req.RestaurantID, subtotal)
		if err != nil {
			return nil, err
		}
		valid := res.Valid
		q.PromotionCode = code
		q.PromotionValid = &valid
		q.PromotionReason = res.Reason
		q.PromotionMessage = res.Message
		if valid {
			q.Discount = res.Discount
			q.Total = subtotal.Sub(res.Discount)
		}
	}
	return q, nil
}

// Submit persists a new pending order with frozen prices. The order only
// exists once the transaction that also redeems its promotion has committed.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Order, error) {
	cart, err := s.price(ctx, req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	subtotal := cart.Subtotal()
	discount := decimal.Zero
	var promotionID *uuid.UUID
	var promotionCode *string

	if code := promotion.NormalizeCode(req.PromotionCode); code != "" {
		res, err := s.promotions.Validate(ctx, code, req.RestaurantID, subtotal)
		if err != nil {
			return nil, err
		}
		if rej := res.Rejection(code); rej != nil {
			return nil, rej
		}
		discount = res.Discount
		id := res.Promotion.ID
		promotionID = &id
		promotionCode = &code
	}

	order := &models.Order{
		RestaurantID:   req.RestaurantID,
		TableRef:       strings.TrimSpace(req.TableRef),
		Status:         string(lifecycle.StatusPending),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		Notes:          req.Notes,
		PromotionCode:  promotionCode,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          subtotal.Sub(discount),
	}
	for _, l := range cart.Lines() {
		order.Items = append(order.Items, freeze(l))
	}

	if err := s.repo.Create(ctx, order, promotionID); err != nil {
		return nil, err
	}

	s.log.Infow("Order submitted",
		"order_id", order.ID,
		"restaurant_id", order.RestaurantID,
		"total", order.Total.StringFixed(2),
		"items", len(order.Items),
	)

	s.announce(ctx, EventInsert, order)
	if s.notifier != nil {
		s.notifier.NotifyNewOrder(ctx, *order)
	}
	return order, nil
}

func (s *Service) announce(ctx context.Context, event string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, ChangeEvent{
		Event:        event,
		Table:        "orders",
		ID:           order.ID,
		RestaurantID: order.RestaurantID,
		OccurredAt:   s.now().UTC(),
	})
	if err != nil {
		// the poll feed picks the change up on its next tick
		s.log.Warnw("Failed to publish order event", "order_id", order.ID, "event", event, "error", err)
	}
}

// Get returns the order when it belongs to restaurantID. uuid.Nil skips the
// tenant check.
func (s *Service) Get(ctx context.Context, restaurantID, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if restaurantID != uuid.Nil && order.RestaurantID != restaurantID {
		return nil, ErrNotFound
	}
	return order, nil
}

// ListSince is the poll endpoint: orders of one restaurant changed at or after
// since, oldest change first, at most MaxPollResults.
func (s *Service) ListSince(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]models.Order, error) {
	return s.repo.UpdatedSince(ctx, restaurantID, since, MaxPollResults)
}

// Advance moves an order to target if the lifecycle allows it from the order's
// current status.
func (s *Service) Advance(ctx context.Context, restaurantID, id uuid.UUID, target, actor string) (*models.Order, error) {
	to, err := lifecycle.Parse(target)
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, restaurantID, id)
	if err != nil {
		return nil, err
	}

	from := lifecycle.Status(order.Status)
	if _, err := lifecycle.Advance(from, to); err != nil {
		return nil, err
	}

	ok, err := s.repo.CompareAndSetStatus(ctx, id, string(from), string(to))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStatusConflict
	}

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Infow("Order status changed", "order_id", id, "from", from, "to", to, "actor", actor)

	err = s.auditor.Record(ctx, audit.Entry{
		OrderID:      id,
		RestaurantID: updated.RestaurantID,
		From:         string(from),
		To:           string(to),
		Actor:        actor,
		At:           updated.UpdatedAt,
	})
	if err != nil {
		s.log.Warnw("Failed to record status change", "order_id", id, "error", err)
	}

	s.announce(ctx, EventUpdate, updated)
	return updated, nil
}

func (s *Service) History(ctx context.Context, restaurantID, id uuid.UUID) ([]audit.Entry, error) {
	if _, err := s.Get(ctx, restaurantID, id); err != nil {
		return nil, err
	}
	return s.auditor.History(ctx, id)
}

// Revenue aggregates the orders created on the calendar day of day, in day's location.
func (s *Service) Revenue(ctx context.Context, restaurantID uuid.UUID, day time.Time) (*Revenue, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	list, err := s.repo.CreatedBetween(ctx, restaurantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for revenue: %w", err)
	}

	rev := &Revenue{
		Date:      start.Format("2006-01-02"),
		Gross:     decimal.Zero,
		Discounts: decimal.Zero,
		Net:       decimal.Zero,
		ByStatus:  make(map[string]int),
	}
	for _, o := range list {
		rev.ByStatus[o.Status]++
		if !lifecycle.CountsAsRevenue(o.Status) {
			continue
		}
		rev.Orders++
		rev.Gross = rev.Gross.Add(o.Subtotal)
		rev.Discounts = rev.Discounts.Add(o.DiscountAmount)
		rev.Net = rev.Net.Add(o.Total)
	}
	return rev, nil
}

// LatestForPhone finds the most recent order placed with this phone number.
func (s *Service) LatestForPhone(ctx context.Context, restaurantID uuid.UUID, phone string) (*models.Order, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrNotFound
	}
	return s.repo.LatestByPhone(ctx, restaurantID, phone)
}
