package usecase

import (
	"context"
	"web-testgen/pkg/apperr"
)

// Session is the single owner token for the live browsing session.
type Session struct {
	sem chan struct{}
}

func NewSession() *Session {
	return &Session{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the session is free or ctx is done. The returned
// func releases it.
func (s *Session) Acquire(ctx context.Context) (func(), error) {
	const op = "Acquire"

	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return nil, apperr.Wrap(op, apperr.CodeTimeout, ctx.Err(), map[string]any{
			apperr.MetaReason: "session_busy",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
}
