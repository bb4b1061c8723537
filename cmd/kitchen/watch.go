package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dinein-system/config"
	"dinein-system/internal/database/models"
	"dinein-system/internal/health"
	"dinein-system/internal/orders"
	"dinein-system/internal/reconcile"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a restaurant's orders live",
		Long: `Keeps a live board of today's orders. New orders arrive over the
redis push feed when it is reachable; a poll of the gateway catches up on
anything the push feed missed.`,
		RunE: runWatch,
	}

	cmd.Flags().StringP("restaurant", "r", "", "Restaurant id")
	cmd.Flags().String("api", "http://localhost:8080", "Gateway base URL")
	cmd.Flags().String("token", os.Getenv("KITCHEN_TOKEN"), "Staff token (defaults to $KITCHEN_TOKEN)")
	cmd.Flags().String("health", "localhost:50051", "Gateway gRPC health address, empty to skip the probe")
	cmd.Flags().Duration("interval", 0, "Poll interval (defaults to SYNC_POLL_INTERVAL)")
	cmd.Flags().Bool("no-push", false, "Poll only, do not subscribe to redis")
	_ = cmd.MarkFlagRequired("restaurant")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	restaurant, _ := cmd.Flags().GetString("restaurant")
	restaurantID, err := uuid.Parse(restaurant)
	if err != nil {
		return fmt.Errorf("invalid --restaurant: %w", err)
	}
	apiURL, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		return fmt.Errorf("a staff token is required, see `kitchen token`")
	}
	healthAddr, _ := cmd.Flags().GetString("health")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.Sync.PollInterval
	}
	noPush, _ := cmd.Flags().GetBool("no-push")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if healthAddr != "" {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := health.Probe(probeCtx, healthAddr, health.ServiceName)
		cancel()
		if err != nil {
			return fmt.Errorf("gateway is not ready: %w", err)
		}
	}

	client := reconcile.NewAPIClient(apiURL, token, 10*time.Second)

	var sub reconcile.Subscriber
	if !noPush {
		redisClient, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warnw("redis unavailable, polling only", "error", err)
		} else {
			defer redisClient.Close()
			sub = orders.NewRedisFeed(redisClient)
		}
	}

	board := newBoard(os.Stdout)
	r := reconcile.New(reconcile.Config{RestaurantID: restaurantID, Interval: interval}, client, client, sub, logger)
	r.OnNew = board.announce
	r.OnChange = board.render

	logger.Infow("watching orders", "restaurant_id", restaurantID, "api", apiURL, "interval", interval, "push", sub != nil)
	return r.Run(ctx)
}

// board redraws the terminal after every change. The latest new-order line
// stays under the board until another order replaces it.
type board struct {
	mu     sync.Mutex
	out    io.Writer
	now    func() time.Time
	latest string
}

func newBoard(out io.Writer) *board {
	return &board{out: out, now: time.Now}
}

func (b *board) announce(o models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = fmt.Sprintf("🛎  NEW ORDER %s %s at %s", shortID(o.ID), tableLabel(o), b.now().Format("15:04:05"))
	fmt.Fprint(b.out, "\a")
}

func (b *board) render(snapshot []models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprint(b.out, "\033[H\033[2J")
	fmt.Fprint(b.out, Render(snapshot, b.now()))
	if b.latest != "" {
		fmt.Fprintf(b.out, "\n%s\n", b.latest)
	}
}
