package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/permit/normalize"
)

func (a *API) registerNormalizeRoutes(router forge.Router) error {
	g := router.Group("/v1/permit", forge.WithGroupTags("normalize"))

	return g.POST("/normalize", a.normalize,
		forge.WithSummary("Normalize list response"),
		forge.WithDescription("Classifies a list response body and extracts its items and total."),
		forge.WithOperationID("permitNormalize"),
		forge.WithRequestSchema(NormalizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Normalized page", NormalizeResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) normalize(ctx forge.Context, req *NormalizeRequest) (*NormalizeResponse, error) {
	resp := toNormalizeResponse(normalize.Classify(req.Response))
	return resp, ctx.JSON(http.StatusOK, resp)
}
