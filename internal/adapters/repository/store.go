// Package repository holds the score rows of a batch run.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/kartscore/internal/domain/model"
)

// Order selects how Ordered arranges score rows.
type Order string

// Supported orders. Every order is stable, so rows that compare equal keep
// their first-appearance order.
const (
	// ByAppearance keeps the order in which sessions first appeared in the input.
	ByAppearance Order = "appearance"
	// BySession sorts by ascending session id.
	BySession Order = "session"
	// ByTrack sorts by track name.
	ByTrack Order = "track"
	// ByDifficulty sorts from Novice to SuperTux.
	ByDifficulty Order = "difficulty"
	// ByScore puts the most frustrating sessions first.
	ByScore Order = "score"
)

// ParseOrder validates an order name. The empty string means ByAppearance.
func ParseOrder(s string) (Order, error) {
	o := Order(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case "":
		return ByAppearance, nil
	case ByAppearance, BySession, ByTrack, ByDifficulty, ByScore:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOrder, s)
	}
}

// Store collects score rows by slot, the session's first-appearance index.
type Store interface {
	// Put stores a score in slot. Each slot can be written once.
	Put(ctx context.Context, slot int, score model.SessionScore) error

	// All returns the filled slots in slot order.
	All(ctx context.Context) []model.SessionScore

	// Ordered returns the filled slots arranged by o.
	Ordered(ctx context.Context, o Order) ([]model.SessionScore, error)

	// Count returns the number of filled slots.
	Count(ctx context.Context) int
}
