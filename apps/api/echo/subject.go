package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core/subject"
)

type subjectAPI struct {
	service  *subject.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, authed echo.MiddlewareFunc, svc *subject.Service, validate *validator.Validate) {
	api := subjectAPI{service: svc, validate: validate}

	subjects := g.Group("/subjects", authed)
	subjects.GET("", api.query)
	subjects.POST("", api.create)
	subjects.GET("/:id", api.retrieve)
	subjects.PUT("/:id", api.update)
	subjects.DELETE("/:id", api.destroy)
	subjects.GET("/:id/enrollments", api.roster)

	enrollments := g.Group("/enrollments", authed)
	enrollments.POST("", api.enroll)
	enrollments.DELETE("/:id", api.unenroll)
}

func (api *subjectAPI) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	subjects, err := api.service.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"subjects": subjects})
}

func (api *subjectAPI) create(ctx echo.Context) error {
	ns := new(subject.NewSubject)
	if err := ctx.Bind(ns); err != nil {
		return errors.Wrap(err, "binding to subject.NewSubject")
	}
	if err := ns.Validate(ctx.Request().Context(), api.validate, api.service); err != nil {
		return err
	}
	s, err := api.service.Create(ctx.Request().Context(), *ns)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"message": "Subject created successfully", "subject": s})
}

func (api *subjectAPI) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, subject.ErrNotFound)
	if err != nil {
		return err
	}
	s, err := api.service.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"subject": s})
}

func (api *subjectAPI) update(ctx echo.Context) error {
	id, err := pathID(ctx, subject.ErrNotFound)
	if err != nil {
		return err
	}
	orig, err := api.service.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	us := new(subject.UpdateSubject)
	if err = ctx.Bind(us); err != nil {
		return errors.Wrap(err, "binding to subject.UpdateSubject")
	}
	if err = us.Validate(ctx.Request().Context(), api.validate, api.service, orig); err != nil {
		return err
	}
	s, err := api.service.Update(ctx.Request().Context(), orig, *us)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "Subject updated successfully", "subject": s})
}

func (api *subjectAPI) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, subject.ErrNotFound)
	if err != nil {
		return err
	}
	if err = api.service.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "Subject deleted successfully"})
}

func (api *subjectAPI) roster(ctx echo.Context) error {
	id, err := pathID(ctx, subject.ErrNotFound)
	if err != nil {
		return err
	}
	entries, err := api.service.Roster(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"students": entries})
}

func (api *subjectAPI) enroll(ctx echo.Context) error {
	ne := new(subject.NewEnrollment)
	if err := ctx.Bind(ne); err != nil {
		return errors.Wrap(err, "binding to subject.NewEnrollment")
	}
	if err := ne.Validate(api.validate); err != nil {
		return err
	}
	e, err := api.service.Enroll(ctx.Request().Context(), *ne)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"message": "Student enrolled successfully", "enrollment": e})
}

func (api *subjectAPI) unenroll(ctx echo.Context) error {
	id, err := pathID(ctx, subject.ErrEnrollmentNotFound)
	if err != nil {
		return err
	}
	if err = api.service.Unenroll(ctx.Request().Context(), id); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "Student removed from subject successfully"})
}
