// Package chat answers customers on a messaging channel. Each message is
// classified by a fixed list of patterns; anything unmatched goes to a
// generative model, and a canned reply covers every failure of that path.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dinein-system/internal/admission"
	"dinein-system/internal/database/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	replyUnregistered = "Hi! Scan the QR code on your table or send /start <restaurant> so I know where you are."
	replyUnknownPlace = "I could not find that restaurant. Please check the code on your table."
	replyHelp         = "I can help with:\n/menu - what we serve\n/hours - when we are open\n/status - your latest order\nOr just ask me a question."
	replyCanned       = "Sorry, I can't answer that right now. Type /menu to see what we serve or ask our staff."
	replyNoOrder      = "I could not find an order for you yet. Share your phone number or ask our staff."
	replyPhoneSaved   = "Thanks, your phone number is saved."
)

type Catalog interface {
	Restaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	MenuSummary(ctx context.Context, restaurantID uuid.UUID, maxItems int) (string, error)
}

type OrderLookup interface {
	LatestForPhone(ctx context.Context, restaurantID uuid.UUID, phone string) (*models.Order, error)
}

// Message is one inbound text from a sender.
type Message struct {
	SenderID string
	Text     string
	// Phone is set when the sender shared their contact card.
	Phone  string
	Locale string
}

type Router struct {
	cache     *SessionCache
	resolver  Resolver
	catalog   Catalog
	orders    OrderLookup
	generator Generator
	guard     *admission.Guard
	aiRule    admission.Rule
	maxItems  int
	log       *zap.SugaredLogger
}

type RouterConfig struct {
	Cache     *SessionCache
	Resolver  Resolver
	Catalog   Catalog
	Orders    OrderLookup
	Generator Generator // optional
	Guard     *admission.Guard
	AIRule    admission.Rule
	MaxItems  int
	Log       *zap.SugaredLogger
}

func NewRouter(cfg RouterConfig) *Router {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Router{
		cache:     cfg.Cache,
		resolver:  cfg.Resolver,
		catalog:   cfg.Catalog,
		orders:    cfg.Orders,
		generator: cfg.Generator,
		guard:     cfg.Guard,
		aiRule:    cfg.AIRule,
		maxItems:  cfg.MaxItems,
		log:       log,
	}
}

// Handle always produces a reply; the error is only non-nil for failures
// the transport should log, and even then the reply is usable.
func (r *Router) Handle(ctx context.Context, msg Message) (string, error) {
	text := strings.TrimSpace(msg.Text)

	if slug, ok := startPayload(text); ok {
		return r.register(ctx, msg, slug)
	}

	sess, err := r.session(ctx, msg.SenderID)
	if errors.Is(err, ErrUnknownSender) {
		return replyUnregistered, nil
	}
	if err != nil {
		return replyCanned, err
	}

	if msg.Phone != "" {
		if err := r.resolver.SetPhone(ctx, msg.SenderID, msg.Phone); err != nil {
			return replyCanned, err
		}
		sess.Phone = strings.TrimSpace(msg.Phone)
		r.cache.Put(msg.SenderID, sess)
		return replyPhoneSaved, nil
	}

	switch Classify(text) {
	case IntentGreeting:
		return r.greeting(ctx, sess)
	case IntentMenu:
		summary, err := r.catalog.MenuSummary(ctx, sess.RestaurantID, r.maxItems)
		if err != nil {
			return replyCanned, err
		}
		if summary == "" {
			return "The menu is empty right now.", nil
		}
		return summary, nil
	case IntentHours:
		restaurant, err := r.catalog.Restaurant(ctx, sess.RestaurantID)
		if err != nil {
			return replyCanned, err
		}
		if restaurant.OpeningHours == "" {
			return fmt.Sprintf("Please ask the staff at %s for today's hours.", restaurant.Name), nil
		}
		return fmt.Sprintf("%s is open:\n%s", restaurant.Name, restaurant.OpeningHours), nil
	case IntentOrderStatus:
		return r.orderStatus(ctx, sess)
	case IntentHelp:
		return replyHelp, nil
	default:
		return r.fallback(ctx, msg.SenderID, sess, text), nil
	}
}

func startPayload(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 2 && strings.EqualFold(fields[0], "/start") {
		return fields[1], true
	}
	return "", false
}

func (r *Router) session(ctx context.Context, sender string) (Session, error) {
	if s, ok := r.cache.Get(sender); ok {
		return s, nil
	}
	s, err := r.resolver.Resolve(ctx, sender)
	if err != nil {
		return Session{}, err
	}
	r.cache.Put(sender, s)
	return s, nil
}

func (r *Router) register(ctx context.Context, msg Message, slug string) (string, error) {
	sess, err := r.resolver.Register(ctx, msg.SenderID, slug, msg.Locale)
	if errors.Is(err, ErrUnknownRestaurant) {
		return replyUnknownPlace, nil
	}
	if err != nil {
		return replyCanned, err
	}
	r.cache.Put(msg.SenderID, sess)
	return r.greeting(ctx, sess)
}

func (r *Router) greeting(ctx context.Context, sess Session) (string, error) {
	restaurant, err := r.catalog.Restaurant(ctx, sess.RestaurantID)
	if err != nil {
		return "Welcome! " + replyHelp, err
	}
	return fmt.Sprintf("Welcome to %s! %s", restaurant.Name, replyHelp), nil
}

func (r *Router) orderStatus(ctx context.Context, sess Session) (string, error) {
	if sess.Phone == "" {
		return replyNoOrder, nil
	}
	order, err := r.orders.LatestForPhone(ctx, sess.RestaurantID, sess.Phone)
	if err != nil {
		// not found and lookup failures read the same to the customer
		return replyNoOrder, nil
	}
	short := order.ID.String()[:8]
	return fmt.Sprintf("Your order %s (%s) is %s.", short, order.Total.StringFixed(2), order.Status), nil
}

func (r *Router) fallback(ctx context.Context, sender string, sess Session, text string) string {
	if r.generator == nil {
		return replyCanned
	}

	if r.guard != nil {
		dec, err := r.guard.Check(ctx, admission.Key(admission.ClassAI, sender), r.aiRule)
		if err != nil {
			r.log.Warnw("AI admission check failed", "sender", sender, "error", err)
			return replyCanned
		}
		if !dec.Allowed {
			return replyCanned
		}
	}

	restaurant, err := r.catalog.Restaurant(ctx, sess.RestaurantID)
	if err != nil {
		r.log.Warnw("Failed to load restaurant for generator", "restaurant_id", sess.RestaurantID, "error", err)
		return replyCanned
	}
	summary, err := r.catalog.MenuSummary(ctx, sess.RestaurantID, r.maxItems)
	if err != nil {
		r.log.Warnw("Failed to load menu for generator", "restaurant_id", sess.RestaurantID, "error", err)
		return replyCanned
	}

	answer, err := r.generator.Generate(ctx, Prompt{
		Restaurant:  restaurant.Name,
		Locale:      sess.Locale,
		MenuSummary: summary,
		Question:    text,
	})
	if err != nil {
		r.log.Warnw("Generator unavailable, sending canned reply", "sender", sender, "error", err)
		return replyCanned
	}
	return answer
}
