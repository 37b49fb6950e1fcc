package permit

import (
	"context"
	"fmt"
	"strings"
)

// CheckMode selects how multiple codes combine.
type CheckMode string

const (
	// CheckAny allows when at least one code is held.
	CheckAny CheckMode = "any"

	// CheckAll allows when every code is held.
	CheckAll CheckMode = "all"
)

// Valid reports whether m is a known mode.
func (m CheckMode) Valid() bool { return m == CheckAny || m == CheckAll }

// CheckRequest asks whether a subject holds some permission codes.
type CheckRequest struct {
	Request
	Codes []string  `json:"codes"`
	Mode  CheckMode `json:"mode,omitempty"`
}

// CheckResult is the outcome of a permission check.
type CheckResult struct {
	Allowed bool      `json:"allowed"`
	Mode    CheckMode `json:"mode"`
	Missing []string  `json:"missing,omitempty"`
	Phase   Phase     `json:"phase"`
	IsOwner bool      `json:"is_owner"`
	Error   string    `json:"error,omitempty"`
}

// Check resolves the subject's permissions and evaluates the codes against
// them. An empty Mode means CheckAny. A failed fetch is not an error here:
// the result is denied and carries the failure message and PhaseFailed.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = CheckAny
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCheckMode, req.Mode)
	}

	res := e.Resolve(ctx, req.Request)
	allowed, missing := evaluate(res.IsOwner, res.Permissions, mode, req.Codes)

	result := &CheckResult{
		Allowed: allowed,
		Mode:    mode,
		Missing: missing,
		Phase:   res.Phase,
		IsOwner: res.IsOwner,
		Error:   res.Error,
	}

	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, req, result)
	}
	return result, nil
}

// Enforce returns nil when the codes are held under mode. It returns
// ErrPermissionsUnavailable when the fetch failed and ErrAccessDenied
// listing the missing codes otherwise.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	result, err := e.Check(ctx, req)
	if err != nil {
		return err
	}
	if result.Allowed {
		return nil
	}
	if result.Phase == PhaseFailed {
		return fmt.Errorf("%w: %s", ErrPermissionsUnavailable, result.Error)
	}
	return fmt.Errorf("%w: missing %s", ErrAccessDenied, strings.Join(result.Missing, ", "))
}

// Can is a shorthand for a single-code check at enterprise scope.
func (e *Engine) Can(ctx context.Context, subjectID, code string) bool {
	result, err := e.Check(ctx, &CheckRequest{
		Request: Request{SubjectID: subjectID},
		Codes:   []string{code},
	})
	return err == nil && result.Allowed
}
