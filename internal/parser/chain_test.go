package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct {
	res   Result
	err   error
	calls int
}

func (s *stubParser) Parse(context.Context, string, time.Time) (Result, error) {
	s.calls++
	return s.res, s.err
}

func TestChain(t *testing.T) {
	failing := &stubParser{err: errors.New("api down")}
	rules := &stubParser{res: Result{Description: "x"}}
	never := &stubParser{}

	res, err := Chain{failing, rules, never}.Parse(context.Background(), "x", now)
	require.NoError(t, err)
	assert.Equal(t, "x", res.Description)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, never.calls)

	_, err = Chain{&stubParser{err: ErrNoMatch}}.Parse(context.Background(), "x", now)
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = Chain{}.Parse(context.Background(), "x", now)
	assert.ErrorIs(t, err, ErrNoMatch)
}
