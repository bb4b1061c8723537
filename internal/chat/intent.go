package chat

import (
	"regexp"
	"strings"
)

type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentMenu        Intent = "menu"
	IntentHours       Intent = "hours"
	IntentOrderStatus Intent = "order_status"
	IntentHelp        Intent = "help"
	IntentFallback    Intent = "fallback"
)

type rule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// rules are checked top to bottom; the first match wins.
var rules = []rule{
	{IntentGreeting, regexp.MustCompile(`^(/start\b|hi\b|hello\b|hey\b|hola\b|good (morning|afternoon|evening)\b)`)},
	{IntentMenu, regexp.MustCompile(`(/menu\b|\bmenu\b|\bcarta\b|what do you (have|serve)|\bdishes\b)`)},
	{IntentHours, regexp.MustCompile(`(/hours\b|\bhours\b|\bopen(ing)?\b|\bclos(e|ed|ing)\b|\bhorario\b)`)},
	{IntentOrderStatus, regexp.MustCompile(`(/status\b|order status|where is my (order|food)|\bmy order\b|\btrack\b|\bpedido\b)`)},
	{IntentHelp, regexp.MustCompile(`(/help\b|^help\b|^\?+$|\bayuda\b)`)},
}

func Classify(text string) Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return IntentHelp
	}
	for _, r := range rules {
		if r.pattern.MatchString(t) {
			return r.intent
		}
	}
	return IntentFallback
}
