package api

import (
	"context"
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/permit"
	"github.com/xraph/permit/resolutionlog"
	"github.com/xraph/permit/session"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, resolutionlog.ErrNotFound) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, permit.ErrInvalidCheckMode) || errors.Is(err, permit.ErrScopeRequired) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, permit.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

// withSession attaches a per-request session carrying token. The session
// is unverified, so an owner claim in token is ignored. An empty token
// leaves ctx on the engine's default session.
func withSession(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	store := session.NewMapStore(map[string]string{session.KeyToken: token})
	return session.NewContext(ctx, session.FromStore(store))
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
