// Package notify tells restaurant staff about new orders outside the staff
// view. Everything here is fire-and-forget: failures are logged and never
// reach the order path.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dinein-system/internal/database/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewOrder is the notification payload; it is also the queue message body.
type NewOrder struct {
	OrderID      uuid.UUID `json:"order_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	TableRef     string    `json:"table_ref,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	Total        string    `json:"total"`
	Items        []Item    `json:"items"`
	CreatedAt    time.Time `json:"created_at"`
}

type Item struct {
	Name     string `json:"name"`
	Variant  string `json:"variant,omitempty"`
	Quantity int32  `json:"quantity"`
}

func FromOrder(o models.Order) NewOrder {
	n := NewOrder{
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		TableRef:     o.TableRef,
		CustomerName: o.CustomerName,
		Total:        o.Total.StringFixed(2),
		CreatedAt:    o.CreatedAt,
	}
	for _, it := range o.Items {
		n.Items = append(n.Items, Item{Name: it.ProductName, Variant: it.VariantName, Quantity: it.Quantity})
	}
	return n
}

func (n NewOrder) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛎 New order %s\n", n.OrderID.String()[:8])
	if n.TableRef != "" {
		fmt.Fprintf(&b, "Table: %s\n", n.TableRef)
	}
	if n.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", n.CustomerName)
	}
	for _, it := range n.Items {
		if it.Variant != "" {
			fmt.Fprintf(&b, "%dx %s (%s)\n", it.Quantity, it.Name, it.Variant)
		} else {
			fmt.Fprintf(&b, "%dx %s\n", it.Quantity, it.Name)
		}
	}
	fmt.Fprintf(&b, "Total: %s", n.Total)
	return b.String()
}

type Sender interface {
	Send(chatID int64, text string) error
}

type Recipients interface {
	OptedIn(ctx context.Context, restaurantID uuid.UUID) ([]models.NotificationRecipient, error)
}

type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramSender{api: api}, nil
}

func (s *TelegramSender) Send(chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

type GormRecipients struct {
	db *gorm.DB
}

func NewGormRecipients(db *gorm.DB) *GormRecipients {
	return &GormRecipients{db: db}
}

func (r *GormRecipients) OptedIn(ctx context.Context, restaurantID uuid.UUID) ([]models.NotificationRecipient, error) {
	var list []models.NotificationRecipient
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND opted_in = ?", restaurantID, true).
		Find(&list).Error
	return list, err
}

type Dispatcher struct {
	sender     Sender
	recipients Recipients
	log        *zap.SugaredLogger
}

func NewDispatcher(sender Sender, recipients Recipients, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{sender: sender, recipients: recipients, log: log}
}

// Deliver sends n to every opted-in recipient and returns how many got it.
// An error is returned only when no recipient could be looked up.
func (d *Dispatcher) Deliver(ctx context.Context, n NewOrder) (int, error) {
	list, err := d.recipients.OptedIn(ctx, n.RestaurantID)
	if err != nil {
		return 0, fmt.Errorf("failed to load recipients: %w", err)
	}

	text := n.Text()
	sent := 0
	for _, r := range list {
		if err := d.sender.Send(r.TelegramChatID, text); err != nil {
			d.log.Warnw("Failed to notify recipient", "recipient", r.Name, "order_id", n.OrderID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
