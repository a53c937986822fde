package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/analytics"
	"github.com/thusykanna/school-management-system-v1/services/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type analyticsAPI struct {
	service  *analytics.Service
	activity *activity.Service
}

func registerAnalyticsAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *analytics.Service, activitySvc *activity.Service) {
	api := analyticsAPI{service: svc, activity: activitySvc}

	g.GET("/dashboard", api.dashboard, authed)
	g.GET("/activity", api.recentActivity, authed)

	stats := g.Group("/analytics", authed)
	stats.GET("/overall", api.overall)
	stats.GET("/rankings", api.rankings)
	stats.GET("/subjects", api.subjects)
	stats.GET("/distribution", api.distribution)
	stats.GET("/classes", api.classes)
	stats.GET("/insights", api.insights)
	stats.GET("/export", api.export)
}

func (api *analyticsAPI) dashboard(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit", activity.DefaultLimit)
	if err != nil {
		return err
	}
	d, err := api.service.Dashboard(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"stats": d})
}

func (api *analyticsAPI) recentActivity(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit", activity.DefaultLimit)
	if err != nil {
		return err
	}
	entries, err := api.activity.Recent(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"activity": entries})
}

func (api *analyticsAPI) overall(ctx echo.Context) error {
	stats, err := api.service.Overall(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"stats": stats})
}

func (api *analyticsAPI) rankings(ctx echo.Context) error {
	rankings, err := api.service.Rankings(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"rankings": rankings})
}

func (api *analyticsAPI) subjects(ctx echo.Context) error {
	analysis, err := api.service.SubjectAnalysis(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"analysis": analysis})
}

func (api *analyticsAPI) distribution(ctx echo.Context) error {
	dist, err := api.service.GradeDistribution(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"distribution": dist})
}

func (api *analyticsAPI) classes(ctx echo.Context) error {
	perf, err := api.service.ClassPerformance(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"performance": perf})
}

func (api *analyticsAPI) insights(ctx echo.Context) error {
	insights, err := api.service.Insights(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"insights": insights})
}

func (api *analyticsAPI) export(ctx echo.Context) error {
	report, err := api.service.Report(ctx.Request().Context())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err = spreadsheet.WriteReport(&buf, report); err != nil {
		return errors.Wrap(err, "writing analytics workbook")
	}
	name := fmt.Sprintf("analytics-%s.xlsx", report.GeneratedAt.Format("20060102"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
