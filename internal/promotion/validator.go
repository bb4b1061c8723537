package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dinein-system/internal/database/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonCodeNotFound Reason = "CODE_NOT_FOUND"
	ReasonExpired      Reason = "EXPIRED"
	ReasonLimitReached Reason = "LIMIT_REACHED"
	ReasonBelowMinimum Reason = "BELOW_MINIMUM"
)

var ErrNotFound = errors.New("promotion not found")

// Result is the outcome of checking a code against a subtotal. Rule failures are
// reported here, never as errors.
type Result struct {
	Valid     bool
	Discount  decimal.Decimal
	Reason    Reason
	Message   string
	Promotion *models.Promotion
}

// Rejection turns a failed Result into an error for callers that must abort,
// like order submission.
type Rejection struct {
	Code    string
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("promotion %s rejected: %s", r.Code, r.Message)
}

func (r Result) Rejection(code string) *Rejection {
	if r.Valid {
		return nil
	}
	return &Rejection{Code: code, Reason: r.Reason, Message: r.Message}
}

type Store interface {
	// FindByCode matches code case-insensitively within one restaurant.
	FindByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Promotion, error)
}

type Validator struct {
	store Store
	now   func() time.Time
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// Validate has no side effects; redemption counting belongs to order submission.
func (v *Validator) Validate(ctx context.Context, code string, restaurantID uuid.UUID, subtotal decimal.Decimal) (Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return notFound(), nil
	}

	promo, err := v.store.FindByCode(ctx, restaurantID, code)
	if errors.Is(err, ErrNotFound) {
		return notFound(), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to load promotion: %w", err)
	}

	return Evaluate(promo, subtotal, v.now()), nil
}

// Evaluate applies the promotion rules in order and stops at the first failure.
func Evaluate(promo *models.Promotion, subtotal decimal.Decimal, now time.Time) Result {
	if promo == nil || !promo.IsActive {
		return notFound()
	}

	if promo.ExpiresAt != nil && !now.Before(*promo.ExpiresAt) {
		return Result{
			Reason:    ReasonExpired,
			Message:   fmt.Sprintf("Promotion expired on %s", promo.ExpiresAt.Format("2006-01-02 15:04")),
			Promotion: promo,
		}
	}

	if promo.MaxUses != nil && promo.CurrentUses >= *promo.MaxUses {
		return Result{
			Reason:    ReasonLimitReached,
			Message:   "Promotion has reached its usage limit",
			Promotion: promo,
		}
	}

	if promo.MinOrderAmount.IsPositive() && subtotal.LessThan(promo.MinOrderAmount) {
		return Result{
			Reason:    ReasonBelowMinimum,
			Message:   fmt.Sprintf("Minimum order of %s required", promo.MinOrderAmount.StringFixed(2)),
			Promotion: promo,
		}
	}

	return Result{
		Valid:     true,
		Discount:  Discount(promo.DiscountType, promo.DiscountValue, subtotal),
		Message:   "Promotion applied",
		Promotion: promo,
	}
}

// Discount computes the amount off subtotal, clamped to [0, subtotal].
func Discount(discountType string, value, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch discountType {
	case models.DiscountTypePercentage:
		amount = subtotal.Mul(value).Div(decimal.NewFromInt(100))
	case models.DiscountTypeFixed:
		amount = value
	default:
		amount = decimal.Zero
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return amount.Round(2)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func notFound() Result {
	return Result{
		Reason:  ReasonCodeNotFound,
		Message: "Promotion code not found",
	}
}
