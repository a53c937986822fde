package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/analytics"
	"github.com/thusykanna/school-management-system-v1/core/mark"
)

const headerIdempotencyKey = "Idempotency-Key"

type markAPI struct {
	service   *mark.Service
	analytics *analytics.Service
	validate  *validator.Validate
}

func registerMarkAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *mark.Service, analyticsSvc *analytics.Service, validate *validator.Validate) {
	api := markAPI{service: svc, analytics: analyticsSvc, validate: validate}

	marks := g.Group("/marks", authed)
	marks.GET("", api.query)
	marks.POST("", api.create)
	marks.GET("/summary", api.summary)
	marks.GET("/:id", api.retrieve)
	marks.PUT("/:id", api.update)
	marks.DELETE("/:id", api.destroy)
}

// idempotencyKey normalises the Idempotency-Key header, which takes precedence over the body field.
func idempotencyKey(ctx echo.Context, fromBody string) (string, error) {
	key := strings.TrimSpace(ctx.Request().Header.Get(headerIdempotencyKey))
	if key == "" {
		return fromBody, nil
	}
	u, err := uuid.Parse(key)
	if err != nil {
		return "", core.NewValidationError(nil, core.FieldError{Field: "idempotency_key", Error: "must be a valid UUID"})
	}
	return u.String(), nil
}

func (api *markAPI) query(ctx echo.Context) error {
	filter := new(mark.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to mark.QueryFilter")
	}
	marks, err := api.service.List(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"grades": marks})
}

func (api *markAPI) create(ctx echo.Context) error {
	nm := new(mark.NewMark)
	if err := ctx.Bind(nm); err != nil {
		return errors.Wrap(err, "binding to mark.NewMark")
	}
	key, err := idempotencyKey(ctx, nm.IdempotencyKey)
	if err != nil {
		return err
	}
	nm.IdempotencyKey = key
	if err = nm.Validate(api.validate); err != nil {
		return err
	}

	m, created, err := api.service.Create(ctx.Request().Context(), *nm)
	if err != nil {
		return err
	}
	code := http.StatusOK // replayed
	if created {
		code = http.StatusCreated
	}
	return respond(ctx, code, echo.Map{"message": "Marks saved successfully", "mark": m, "created": created})
}

func (api *markAPI) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, mark.ErrNotFound)
	if err != nil {
		return err
	}
	m, err := api.service.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"mark": m, "grade": m.Grade()})
}

func (api *markAPI) update(ctx echo.Context) error {
	id, err := pathID(ctx, mark.ErrNotFound)
	if err != nil {
		return err
	}
	um := new(mark.UpdateMark)
	if err = ctx.Bind(um); err != nil {
		return errors.Wrap(err, "binding to mark.UpdateMark")
	}
	if err = um.Validate(api.validate); err != nil {
		return err
	}
	m, err := api.service.Update(ctx.Request().Context(), id, *um)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "Marks updated successfully", "mark": m})
}

func (api *markAPI) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, mark.ErrNotFound)
	if err != nil {
		return err
	}
	if err = api.service.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "Marks deleted successfully"})
}

func (api *markAPI) summary(ctx echo.Context) error {
	summary, err := api.analytics.Summary(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"summary": summary})
}
