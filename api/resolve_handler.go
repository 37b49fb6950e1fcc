package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) registerResolveRoutes(router forge.Router) error {
	g := router.Group("/v1/permit", forge.WithGroupTags("resolution"))

	return g.POST("/resolve", a.resolve,
		forge.WithSummary("Resolve permissions"),
		forge.WithDescription("Resolves the permission codes a subject holds at enterprise or project scope."),
		forge.WithOperationID("permitResolve"),
		forge.WithRequestSchema(ResolveRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolution", ResolutionResponse{}),
		forge.WithErrorResponses(),
	)
}

// resolve always answers 200 for a completed attempt. A failed fetch is
// reported in the body through phase and error.
func (a *API) resolve(ctx forge.Context, req *ResolveRequest) (*ResolutionResponse, error) {
	if req.ProjectScope && req.ScopeID == "" {
		return nil, forge.BadRequest("scope_id is required for project scope")
	}

	res := a.eng.Resolve(withSession(ctx.Context(), req.Token), req.toRequest())

	resp := toResolutionResponse(res)
	return resp, ctx.JSON(http.StatusOK, resp)
}
