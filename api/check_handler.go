package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/permit"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/permit", forge.WithGroupTags("checks"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Permission check"),
		forge.WithDescription("Evaluates whether the subject holds the given permission codes."),
		forge.WithOperationID("permitCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce permissions"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied and 503 if permissions could not be fetched."),
		forge.WithOperationID("permitEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/batch-check", a.batchCheck,
		forge.WithSummary("Batch permission check"),
		forge.WithDescription("Evaluates multiple permission checks in one request."),
		forge.WithOperationID("permitBatchCheck"),
		forge.WithRequestSchema(BatchCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchCheckResponse{}),
		forge.WithErrorResponses(),
	)
}

func validateCheck(req *CheckRequest) error {
	if len(req.Codes) == 0 {
		return forge.BadRequest("codes cannot be empty")
	}
	if req.ProjectScope && req.ScopeID == "" {
		return forge.BadRequest("scope_id is required for project scope")
	}
	return nil
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if err := validateCheck(req); err != nil {
		return nil, err
	}

	result, err := a.eng.Check(withSession(ctx.Context(), req.Token), req.toCheckRequest())
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if err := validateCheck(req); err != nil {
		return nil, err
	}

	result, err := a.eng.Check(withSession(ctx.Context(), req.Token), req.toCheckRequest())
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	return resp, ctx.JSON(enforceStatus(result), resp)
}

func enforceStatus(result *permit.CheckResult) int {
	switch {
	case result.Allowed:
		return http.StatusOK
	case result.Phase == permit.PhaseFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusForbidden
	}
}

func (a *API) batchCheck(ctx forge.Context, req *BatchCheckRequest) (*BatchCheckResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]CheckResponse, len(req.Checks))
	for i := range req.Checks {
		c := &req.Checks[i]
		if err := validateCheck(c); err != nil {
			return nil, err
		}
		result, err := a.eng.Check(withSession(ctx.Context(), c.Token), c.toCheckRequest())
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toCheckResponse(result)
	}

	resp := &BatchCheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}
