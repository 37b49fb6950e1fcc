// Package middleware provides HTTP permission middleware for permit.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/permit"
)

// ProjectParam is the route parameter that switches a check to project
// scope. Routes without it are checked at enterprise scope.
const ProjectParam = "projectId"

// The owner bypass applies only to a request session whose token was
// verified, see session.Middleware.

// Require allows the request only if the subject holds code.
func Require(eng *permit.Engine, code string) forge.Middleware {
	return guard(eng, permit.CheckAny, []string{code})
}

// RequireAny allows the request if the subject holds ANY of codes.
func RequireAny(eng *permit.Engine, codes ...string) forge.Middleware {
	return guard(eng, permit.CheckAny, codes)
}

// RequireAll allows the request only if the subject holds ALL of codes.
func RequireAll(eng *permit.Engine, codes ...string) forge.Middleware {
	return guard(eng, permit.CheckAll, codes)
}

func guard(eng *permit.Engine, mode permit.CheckMode, codes []string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			result, err := eng.Check(ctx.Context(), checkRequest(ctx, mode, codes))
			if err != nil {
				return deny(ctx, http.StatusInternalServerError, err.Error())
			}
			if status, msg := decide(result); status != 0 {
				return deny(ctx, status, msg)
			}
			return next(ctx)
		}
	}
}

// checkRequest builds the check from the request context. The subject
// is the Forge user ID; a projectId route parameter selects project scope.
func checkRequest(ctx forge.Context, mode permit.CheckMode, codes []string) *permit.CheckRequest {
	req := &permit.CheckRequest{
		Request: permit.Request{SubjectID: forge.UserIDFromContext(ctx.Context())},
		Codes:   codes,
		Mode:    mode,
	}
	if projectID := ctx.Param(ProjectParam); projectID != "" {
		req.ScopeID = projectID
		req.ProjectScope = true
	}
	return req
}

// decide returns a zero status when result allows the request.
func decide(result *permit.CheckResult) (int, string) {
	switch {
	case result.Allowed:
		return 0, ""
	case result.Phase == permit.PhaseFailed:
		return http.StatusServiceUnavailable, "permissions unavailable"
	default:
		return http.StatusForbidden, "access denied"
	}
}

func deny(ctx forge.Context, status int, msg string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(status)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": msg})
}
