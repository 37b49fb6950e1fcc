package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/resolutionlog"
)

func (a *API) registerResolutionLogRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("resolution-logs"))

	if err := g.GET("/resolution-logs", a.listResolutionLogs,
		forge.WithSummary("Query resolution logs"),
		forge.WithDescription("Returns permission resolution audit logs with optional filters, newest first."),
		forge.WithOperationID("listResolutionLogs"),
		forge.WithRequestSchema(ListResolutionLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolution log list", ListResponse[*resolutionlog.Entry]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/resolution-logs/:logId", a.getResolutionLog,
		forge.WithSummary("Get resolution log"),
		forge.WithDescription("Returns a single resolution log entry."),
		forge.WithOperationID("getResolutionLog"),
		forge.WithResponseSchema(http.StatusOK, "Resolution log", resolutionlog.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/resolution-logs", a.purgeResolutionLogs,
		forge.WithSummary("Purge resolution logs"),
		forge.WithDescription("Removes entries created before the given time."),
		forge.WithOperationID("purgeResolutionLogs"),
		forge.WithRequestSchema(PurgeResolutionLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Purge result", PurgeResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listResolutionLogs(ctx forge.Context, req *ListResolutionLogsRequest) (*ListResponse[*resolutionlog.Entry], error) {
	filter := &resolutionlog.QueryFilter{
		TenantID:  req.TenantID,
		SubjectID: req.SubjectID,
		Scope:     req.Scope,
		ScopeID:   req.ScopeID,
		Phase:     req.Phase,
		Limit:     defaultLimit(req.Limit),
		Offset:    req.Offset,
	}

	var err error
	if filter.After, err = parseTime("after", req.After); err != nil {
		return nil, err
	}
	if filter.Before, err = parseTime("before", req.Before); err != nil {
		return nil, err
	}

	logs, err := a.logs.ListResolutionLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.logs.CountResolutionLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	if logs == nil {
		logs = []*resolutionlog.Entry{}
	}

	resp := &ListResponse[*resolutionlog.Entry]{
		Items:  logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getResolutionLog(ctx forge.Context, _ *GetResolutionLogRequest) (*resolutionlog.Entry, error) {
	logID, err := id.ParseResolutionLogID(ctx.Param("logId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid resolution log ID: %v", err))
	}

	entry, err := a.logs.GetResolutionLog(ctx.Context(), logID)
	if err != nil {
		return nil, mapError(err)
	}

	return entry, ctx.JSON(http.StatusOK, entry)
}

func (a *API) purgeResolutionLogs(ctx forge.Context, req *PurgeResolutionLogsRequest) (*PurgeResponse, error) {
	before, err := parseTime("before", req.Before)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, forge.BadRequest("before is required")
	}

	n, err := a.logs.PurgeResolutionLogs(ctx.Context(), *before)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &PurgeResponse{Deleted: n}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, forge.BadRequest("invalid " + name + " timestamp")
	}
	return &t, nil
}
