package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dinein-system/internal/audit"
	"dinein-system/internal/catalog"
	"dinein-system/internal/database/models"
	"dinein-system/internal/gateway/middleware"
	"dinein-system/internal/lifecycle"
	"dinein-system/internal/orders"
	"dinein-system/internal/promotion"
	"dinein-system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var secret = []byte("handlers-test")

func init() {
	gin.SetMode(gin.TestMode)
}

type MockOrderService struct {
	QuoteFunc     func(ctx context.Context, req orders.QuoteRequest) (*orders.Quote, error)
	SubmitFunc    func(ctx context.Context, req orders.SubmitRequest) (*models.Order, error)
	GetFunc       func(ctx context.Context, restaurantID, id uuid.UUID) (*models.Order, error)
	ListSinceFunc func(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]models.Order, error)
	AdvanceFunc   func(ctx context.Context, restaurantID, id uuid.UUID, target, actor string) (*models.Order, error)
	HistoryFunc   func(ctx context.Context, restaurantID, id uuid.UUID) ([]audit.Entry, error)
	RevenueFunc   func(ctx context.Context, restaurantID uuid.UUID, day time.Time) (*orders.Revenue, error)
}

func (m *MockOrderService) Quote(ctx context.Context, req orders.QuoteRequest) (*orders.Quote, error) {
	return m.QuoteFunc(ctx, req)
}

func (m *MockOrderService) Submit(ctx context.Context, req orders.SubmitRequest) (*models.Order, error) {
	return m.SubmitFunc(ctx, req)
}

func (m *MockOrderService) Get(ctx context.Context, restaurantID, id uuid.UUID) (*models.Order, error) {
	return m.GetFunc(ctx, restaurantID, id)
}

func (m *MockOrderService) ListSince(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]models.Order, error) {
	return m.ListSinceFunc(ctx, restaurantID, since)
}

func (m *MockOrderService) Advance(ctx context.Context, restaurantID, id uuid.UUID, target, actor string) (*models.Order, error) {
	return m.AdvanceFunc(ctx, restaurantID, id, target, actor)
}

func (m *MockOrderService) History(ctx context.Context, restaurantID, id uuid.UUID) ([]audit.Entry, error) {
	return m.HistoryFunc(ctx, restaurantID, id)
}

func (m *MockOrderService) Revenue(ctx context.Context, restaurantID uuid.UUID, day time.Time) (*orders.Revenue, error) {
	return m.RevenueFunc(ctx, restaurantID, day)
}

type MockMenus struct {
	MenuFunc    func(ctx context.Context, restaurantID uuid.UUID) (*catalog.Menu, error)
	invalidated []uuid.UUID
}

func (m *MockMenus) Menu(ctx context.Context, restaurantID uuid.UUID) (*catalog.Menu, error) {
	return m.MenuFunc(ctx, restaurantID)
}

func (m *MockMenus) Invalidate(_ context.Context, restaurantID uuid.UUID) error {
	m.invalidated = append(m.invalidated, restaurantID)
	return nil
}

type MockPromotions struct {
	ValidateFunc func(ctx context.Context, code string, restaurantID uuid.UUID, subtotal decimal.Decimal) (promotion.Result, error)
	CreateFunc   func(ctx context.Context, promo *models.Promotion) error
	created      []*models.Promotion
}

func (m *MockPromotions) Validate(ctx context.Context, code string, restaurantID uuid.UUID, subtotal decimal.Decimal) (promotion.Result, error) {
	return m.ValidateFunc(ctx, code, restaurantID, subtotal)
}

func (m *MockPromotions) Create(ctx context.Context, promo *models.Promotion) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, promo); err != nil {
			return err
		}
	}
	m.created = append(m.created, promo)
	return nil
}

func (m *MockPromotions) List(context.Context, uuid.UUID) ([]models.Promotion, error) {
	out := make([]models.Promotion, 0, len(m.created))
	for _, p := range m.created {
		out = append(out, *p)
	}
	return out, nil
}

type fixture struct {
	restaurant uuid.UUID
	svc        *MockOrderService
	menus      *MockMenus
	promos     *MockPromotions
	router     *gin.Engine
}

func newFixture() *fixture {
	f := &fixture{
		restaurant: uuid.New(),
		svc:        &MockOrderService{},
		menus:      &MockMenus{},
		promos:     &MockPromotions{},
	}
	log := zap.NewNop().Sugar()
	ordering := NewOrderingHTTPHandler(f.svc, f.menus, log)
	promos := NewPromotionHTTPHandler(f.promos, f.promos, log)
	reports := NewReportHTTPHandler(f.svc, log)

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/restaurants/:restaurant_id/menu", ordering.GetMenu)
	api.POST("/cart/quote", ordering.Quote)
	api.POST("/validate-promo", promos.ValidatePromo)
	api.POST("/orders", ordering.SubmitOrder)

	staff := api.Group("", middleware.JWTAuth(secret), middleware.RequireRole(utils.RoleStaff))
	staff.GET("/orders", ordering.ListOrders)
	staff.GET("/orders/:id", ordering.GetOrder)
	staff.PATCH("/orders/:id/status", ordering.UpdateStatus)
	staff.GET("/orders/:id/history", ordering.GetHistory)

	owner := api.Group("", middleware.JWTAuth(secret), middleware.RequireRole(utils.RoleOwner))
	owner.POST("/restaurants/:restaurant_id/menu/refresh", ordering.RefreshMenu)
	owner.POST("/promotions", promos.CreatePromotion)
	owner.GET("/promotions", promos.ListPromotions)
	owner.GET("/reports/revenue", reports.Revenue)

	f.router = r
	return f
}

func (f *fixture) token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := utils.GenerateToken(secret, "staff-1", f.restaurant, role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func (f *fixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func submitBody(restaurant uuid.UUID) gin.H {
	return gin.H{
		"restaurant_id": restaurant,
		"table_ref":     "T4",
		"items":         []gin.H{{"product_id": uuid.New(), "quantity": 2}},
	}
}

func TestSubmitOrderStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		tag  string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"bad selection", &orders.SelectionError{Index: 0, Reason: "unknown product"}, http.StatusBadRequest, "INVALID_SELECTION"},
		{"promotion rejected", &promotion.Rejection{Code: "OLD", Reason: promotion.ReasonExpired, Message: "expired"}, http.StatusBadRequest, "EXPIRED"},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		f := newFixture()
		f.svc.SubmitFunc = func(_ context.Context, req orders.SubmitRequest) (*models.Order, error) {
			if tt.err != nil {
				return nil, tt.err
			}
			o := &models.Order{RestaurantID: req.RestaurantID, Status: "pending", TableRef: req.TableRef}
			o.ID = uuid.New()
			return o, nil
		}

		w := f.do(http.MethodPost, "/api/v1/orders", "", submitBody(f.restaurant))
		if w.Code != tt.code {
			t.Errorf("%s: code = %d, want %d (%s)", tt.name, w.Code, tt.code, w.Body.String())
			continue
		}
		if resp := decode(t, w); resp.Error != tt.tag {
			t.Errorf("%s: error tag = %q, want %q", tt.name, resp.Error, tt.tag)
		}
	}
}

func TestSubmitOrderRejectsEmptyCart(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/api/v1/orders", "", gin.H{"restaurant_id": f.restaurant, "items": []gin.H{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestUpdateStatusErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"illegal", &lifecycle.TransitionError{From: lifecycle.StatusDelivered, To: lifecycle.StatusPending}, http.StatusConflict},
		{"conflict", orders.ErrStatusConflict, http.StatusConflict},
		{"missing", orders.ErrNotFound, http.StatusNotFound},
		{"unknown status", lifecycle.ErrUnknownStatus, http.StatusBadRequest},
	}
	for _, tt := range tests {
		f := newFixture()
		f.svc.AdvanceFunc = func(context.Context, uuid.UUID, uuid.UUID, string, string) (*models.Order, error) {
			return nil, tt.err
		}
		w := f.do(http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status", f.token(t, utils.RoleStaff), gin.H{"status": "pending"})
		if w.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.name, w.Code, tt.code)
		}
	}
}

func TestUpdateStatusPassesTenantAndActor(t *testing.T) {
	f := newFixture()
	orderID := uuid.New()
	f.svc.AdvanceFunc = func(_ context.Context, restaurantID, id uuid.UUID, target, actor string) (*models.Order, error) {
		if restaurantID != f.restaurant || id != orderID || target != "confirmed" || actor != "staff-1" {
			t.Errorf("unexpected call %s %s %s %s", restaurantID, id, target, actor)
		}
		o := &models.Order{RestaurantID: restaurantID, Status: target}
		o.ID = id
		return o, nil
	}

	if w := f.do(http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", "", gin.H{"status": "confirmed"}); w.Code != http.StatusUnauthorized {
		t.Errorf("without token: code = %d, want 401", w.Code)
	}
	if w := f.do(http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", f.token(t, utils.RoleStaff), gin.H{"status": "confirmed"}); w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200 (%s)", w.Code, w.Body.String())
	}
}

func TestListOrdersPollContract(t *testing.T) {
	f := newFixture()
	since := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	latest := since.Add(3 * time.Minute)
	f.svc.ListSinceFunc = func(_ context.Context, restaurantID uuid.UUID, got time.Time) ([]models.Order, error) {
		if restaurantID != f.restaurant || !got.Equal(since) {
			t.Errorf("ListSince(%s, %s)", restaurantID, got)
		}
		a := models.Order{RestaurantID: restaurantID, Status: "pending"}
		a.UpdatedAt = since.Add(time.Minute)
		b := models.Order{RestaurantID: restaurantID, Status: "confirmed"}
		b.UpdatedAt = latest
		return []models.Order{a, b}, nil
	}

	tok := f.token(t, utils.RoleStaff)
	w := f.do(http.MethodGet, "/api/v1/orders?since="+since.Format(time.RFC3339)+"&restaurant="+f.restaurant.String(), tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Data []models.Order `json:"data"`
		Meta PollMeta       `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 || resp.Meta.Count != 2 || resp.Meta.Limit != orders.MaxPollResults {
		t.Errorf("unexpected meta %+v", resp.Meta)
	}
	if !resp.Meta.Cursor.Equal(latest) {
		t.Errorf("cursor = %s, want %s", resp.Meta.Cursor, latest)
	}

	if w := f.do(http.MethodGet, "/api/v1/orders?restaurant="+uuid.NewString(), tok, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign restaurant: code = %d, want 403", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/v1/orders?since=yesterday", tok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad since: code = %d, want 400", w.Code)
	}
}

func TestValidatePromoContract(t *testing.T) {
	f := newFixture()
	f.promos.ValidateFunc = func(_ context.Context, code string, _ uuid.UUID, subtotal decimal.Decimal) (promotion.Result, error) {
		switch code {
		case "SAVE10":
			promo := &models.Promotion{Code: code, DiscountType: models.DiscountTypePercentage, DiscountValue: decimal.NewFromInt(10), Description: "Ten off", IsActive: true}
			return promotion.Evaluate(promo, subtotal, time.Now()), nil
		case "OLD":
			return promotion.Result{Reason: promotion.ReasonExpired, Message: "Promotion expired"}, nil
		case "BROKEN":
			return promotion.Result{}, errors.New("db down")
		}
		return promotion.Result{Reason: promotion.ReasonCodeNotFound, Message: "Promotion code not found"}, nil
	}

	w := f.do(http.MethodPost, "/api/v1/validate-promo", "", gin.H{"code": "SAVE10", "restaurant_id": f.restaurant, "order_total": "50.00"})
	if w.Code != http.StatusOK {
		t.Fatalf("valid code: %d %s", w.Code, w.Body.String())
	}
	var ok ValidatePromoResponse
	_ = json.Unmarshal(w.Body.Bytes(), &ok)
	if !ok.Valid || !ok.Discount.Equal(decimal.RequireFromString("5")) || ok.DiscountType != "percentage" || ok.Description != "Ten off" {
		t.Errorf("unexpected body %+v", ok)
	}

	tests := []struct {
		code string
		want int
	}{
		{"OLD", http.StatusBadRequest},
		{"NOPE", http.StatusNotFound},
		{"BROKEN", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := f.do(http.MethodPost, "/api/v1/validate-promo", "", gin.H{"code": tt.code, "restaurant_id": f.restaurant, "order_total": 50})
		if w.Code != tt.want {
			t.Errorf("%s: code = %d, want %d", tt.code, w.Code, tt.want)
		}
		var e ValidatePromoError
		_ = json.Unmarshal(w.Body.Bytes(), &e)
		if e.Valid || e.Error == "" {
			t.Errorf("%s: error payload should carry a reason, got %+v", tt.code, e)
		}
	}

	if w := f.do(http.MethodPost, "/api/v1/validate-promo", "", gin.H{"code": "SAVE10"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing restaurant: code = %d, want 400", w.Code)
	}
}

func TestValidatePromoRequiresOrderTotal(t *testing.T) {
	f := newFixture()
	called := false
	f.promos.ValidateFunc = func(_ context.Context, code string, _ uuid.UUID, subtotal decimal.Decimal) (promotion.Result, error) {
		called = true
		promo := &models.Promotion{Code: code, DiscountType: models.DiscountTypeFixed, DiscountValue: decimal.NewFromInt(5), IsActive: true}
		return promotion.Evaluate(promo, subtotal, time.Now()), nil
	}

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"missing total", gin.H{"code": "SAVE5", "restaurant_id": f.restaurant}, http.StatusBadRequest},
		{"null total", gin.H{"code": "SAVE5", "restaurant_id": f.restaurant, "order_total": nil}, http.StatusBadRequest},
		{"negative total", gin.H{"code": "SAVE5", "restaurant_id": f.restaurant, "order_total": "-1"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := f.do(http.MethodPost, "/api/v1/validate-promo", "", tt.body)
		if w.Code != tt.want {
			t.Errorf("%s: code = %d, want %d (%s)", tt.name, w.Code, tt.want, w.Body.String())
		}
		var e ValidatePromoError
		_ = json.Unmarshal(w.Body.Bytes(), &e)
		if e.Valid {
			t.Errorf("%s: response must not report a valid code", tt.name)
		}
	}
	if called {
		t.Error("promotion should not be evaluated without an order total")
	}

	w := f.do(http.MethodPost, "/api/v1/validate-promo", "", gin.H{"code": "SAVE5", "restaurant_id": f.restaurant, "order_total": 0})
	if w.Code != http.StatusOK {
		t.Errorf("explicit zero total: code = %d, want 200", w.Code)
	}
}

func TestOwnerRoutes(t *testing.T) {
	f := newFixture()
	f.svc.RevenueFunc = func(_ context.Context, _ uuid.UUID, day time.Time) (*orders.Revenue, error) {
		return &orders.Revenue{Date: day.Format("2006-01-02"), Net: decimal.NewFromInt(42)}, nil
	}
	staff, owner := f.token(t, utils.RoleStaff), f.token(t, utils.RoleOwner)

	if w := f.do(http.MethodGet, "/api/v1/reports/revenue?date=2026-05-01", staff, nil); w.Code != http.StatusForbidden {
		t.Errorf("staff on revenue: code = %d, want 403", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/v1/reports/revenue?date=01-05-2026", owner, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad date: code = %d, want 400", w.Code)
	}
	w := f.do(http.MethodGet, "/api/v1/reports/revenue?date=2026-05-01&tz=UTC", owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("revenue: code = %d (%s)", w.Code, w.Body.String())
	}

	body := gin.H{"code": "save10", "discount_type": "percentage", "discount_value": "10"}
	if w := f.do(http.MethodPost, "/api/v1/promotions", owner, body); w.Code != http.StatusCreated {
		t.Fatalf("create promotion: code = %d (%s)", w.Code, w.Body.String())
	}
	if got := f.promos.created[0]; got.RestaurantID != f.restaurant || !got.IsActive {
		t.Errorf("promotion should belong to the token's restaurant and start active: %+v", got)
	}
	f.promos.CreateFunc = func(context.Context, *models.Promotion) error { return promotion.ErrDuplicateCode }
	if w := f.do(http.MethodPost, "/api/v1/promotions", owner, body); w.Code != http.StatusConflict {
		t.Errorf("duplicate: code = %d, want 409", w.Code)
	}
	over := gin.H{"code": "HUGE", "discount_type": "percentage", "discount_value": "150"}
	if w := f.do(http.MethodPost, "/api/v1/promotions", owner, over); w.Code != http.StatusBadRequest {
		t.Errorf("percentage over 100: code = %d, want 400", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/v1/promotions", owner, nil); w.Code != http.StatusOK {
		t.Errorf("list promotions: code = %d", w.Code)
	}

	if w := f.do(http.MethodPost, "/api/v1/restaurants/"+uuid.NewString()+"/menu/refresh", owner, nil); w.Code != http.StatusForbidden {
		t.Errorf("refresh of another restaurant: code = %d, want 403", w.Code)
	}
	if w := f.do(http.MethodPost, "/api/v1/restaurants/"+f.restaurant.String()+"/menu/refresh", owner, nil); w.Code != http.StatusOK {
		t.Errorf("refresh: code = %d", w.Code)
	}
	if len(f.menus.invalidated) != 1 || f.menus.invalidated[0] != f.restaurant {
		t.Errorf("invalidated = %v", f.menus.invalidated)
	}
}

func TestGetMenu(t *testing.T) {
	f := newFixture()
	f.menus.MenuFunc = func(_ context.Context, id uuid.UUID) (*catalog.Menu, error) {
		if id != f.restaurant {
			return nil, catalog.ErrNotFound
		}
		return &catalog.Menu{Restaurant: models.Restaurant{Name: "Bistro"}}, nil
	}

	if w := f.do(http.MethodGet, "/api/v1/restaurants/not-a-uuid/menu", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: code = %d, want 400", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/v1/restaurants/"+uuid.NewString()+"/menu", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown restaurant: code = %d, want 404", w.Code)
	}
	w := f.do(http.MethodGet, "/api/v1/restaurants/"+f.restaurant.String()+"/menu", "", nil)
	if resp := decode(t, w); w.Code != http.StatusOK || !resp.Success {
		t.Errorf("menu: code = %d body %s", w.Code, w.Body.String())
	}
}
