package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) registerCacheRoutes(router forge.Router) error {
	g := router.Group("/v1/permit", forge.WithGroupTags("cache"))

	if err := g.DELETE("/cache/subjects/:subjectId", a.invalidateSubject,
		forge.WithSummary("Invalidate subject"),
		forge.WithDescription("Drops every cached permission set of a subject in the current tenant."),
		forge.WithOperationID("permitInvalidateSubject"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/cache", a.clearCache,
		forge.WithSummary("Clear cache"),
		forge.WithDescription("Drops every cached permission set and forgets the last session token."),
		forge.WithOperationID("permitClearCache"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) invalidateSubject(ctx forge.Context, _ *InvalidateSubjectRequest) (*struct{}, error) {
	subjectID := ctx.Param("subjectId")
	if subjectID == "" {
		return nil, forge.BadRequest("subject ID is required")
	}

	a.eng.InvalidateSubject(ctx.Context(), subjectID)
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) clearCache(ctx forge.Context, _ *ClearCacheRequest) (*struct{}, error) {
	a.eng.Logout(ctx.Context())
	return nil, ctx.NoContent(http.StatusNoContent)
}
