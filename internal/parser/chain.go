package parser

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Chain tries each parser in order and returns the first match. Errors other
// than ErrNoMatch are logged and the next parser is tried.
type Chain []Parser

func (c Chain) Parse(ctx context.Context, text string, localNow time.Time) (Result, error) {
	for _, p := range c {
		res, err := p.Parse(ctx, text, localNow)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			slog.Warn("date parser failed, trying next", "component", "parser", "error", err)
		}
	}
	return Result{}, ErrNoMatch
}
