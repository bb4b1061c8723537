package main

import (
	"fmt"
	"strings"
	"time"

	"dinein-system/internal/database/models"
	"dinein-system/internal/lifecycle"

	"github.com/google/uuid"
)

var boardColumns = []lifecycle.Status{
	lifecycle.StatusPending,
	lifecycle.StatusConfirmed,
	lifecycle.StatusPreparing,
	lifecycle.StatusReady,
}

// Render lays out the active orders by status. The snapshot arrives newest
// first; the kitchen works oldest first, so each column is reversed.
func Render(snapshot []models.Order, now time.Time) string {
	byStatus := make(map[lifecycle.Status][]models.Order)
	closed := 0
	for _, o := range snapshot {
		st := lifecycle.Status(o.Status)
		if st.IsTerminal() {
			closed++
			continue
		}
		byStatus[st] = append(byStatus[st], o)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Orders at %s\n", now.Format("15:04:05"))
	for _, st := range boardColumns {
		list := byStatus[st]
		fmt.Fprintf(&b, "\n%s (%d)\n", strings.ToUpper(string(st)), len(list))
		for i := len(list) - 1; i >= 0; i-- {
			o := list[i]
			fmt.Fprintf(&b, "  %s %-6s %2d items %8s  %s\n",
				shortID(o.ID), tableLabel(o), itemCount(o), o.Total.StringFixed(2), age(now, o.CreatedAt))
			for _, it := range o.Items {
				name := it.ProductName
				if it.VariantName != "" {
					name += " (" + it.VariantName + ")"
				}
				fmt.Fprintf(&b, "      %dx %s\n", it.Quantity, name)
			}
		}
	}
	fmt.Fprintf(&b, "\n%d delivered or cancelled today\n", closed)
	return b.String()
}

func shortID(id uuid.UUID) string {
	return "#" + id.String()[:8]
}

func tableLabel(o models.Order) string {
	if o.TableRef == "" {
		return "-"
	}
	return o.TableRef
}

func itemCount(o models.Order) int {
	n := 0
	for _, it := range o.Items {
		n += int(it.Quantity)
	}
	return n
}

func age(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}
