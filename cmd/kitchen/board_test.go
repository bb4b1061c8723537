package main

import (
	"strings"
	"testing"
	"time"

	"dinein-system/internal/database/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func order(status, table string, created time.Time, qty int32) models.Order {
	o := models.Order{
		Status:   status,
		TableRef: table,
		Total:    decimal.RequireFromString("12.50"),
		Items:    []models.OrderItem{{ProductName: "Soup", Quantity: qty}},
	}
	o.ID = uuid.New()
	o.CreatedAt = created
	return o
}

func TestRenderGroupsActiveOrders(t *testing.T) {
	now := time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC)
	older := order("pending", "T1", now.Add(-20*time.Minute), 2)
	newer := order("pending", "T2", now.Add(-30*time.Second), 1)
	ready := order("ready", "", now.Add(-90*time.Minute), 3)
	done := order("delivered", "T9", now.Add(-2*time.Hour), 1)

	out := Render([]models.Order{newer, older, ready, done}, now)

	if !strings.Contains(out, "PENDING (2)") || !strings.Contains(out, "READY (1)") || !strings.Contains(out, "CONFIRMED (0)") {
		t.Errorf("missing column headers:\n%s", out)
	}
	if strings.Index(out, "T1") > strings.Index(out, "T2") {
		t.Errorf("oldest pending order should be listed first:\n%s", out)
	}
	if strings.Contains(out, "T9") {
		t.Errorf("delivered orders should not be on the board:\n%s", out)
	}
	for _, want := range []string{"20m ago", "just now", "1h30m ago", "2x Soup", "1 delivered or cancelled today"} {
		if !strings.Contains(out, want) {
			t.Errorf("board missing %q:\n%s", want, out)
		}
	}
}

func TestAnnouncementSurvivesRedraw(t *testing.T) {
	var sb strings.Builder
	b := newBoard(&sb)
	o := order("pending", "T4", time.Now(), 1)

	b.announce(o)
	if !strings.Contains(sb.String(), "\a") {
		t.Error("announcement should ring the bell")
	}
	b.render([]models.Order{o})

	out := sb.String()
	screen := out[strings.LastIndex(out, "\033[2J"):]
	line := "NEW ORDER " + shortID(o.ID) + " T4"
	if !strings.Contains(screen, line) {
		t.Fatalf("redrawn screen lost the announcement:\n%s", screen)
	}
	if strings.Index(screen, line) < strings.Index(screen, "PENDING (1)") {
		t.Errorf("announcement should be printed under the board:\n%s", screen)
	}

	b.render(nil)
	out = sb.String()
	if !strings.Contains(out[strings.LastIndex(out, "\033[2J"):], line) {
		t.Error("announcement should stay until a newer order replaces it")
	}
}
