package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/analytics"
	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/subject"
	"github.com/thusykanna/school-management-system-v1/services/spreadsheet"
)

const importFileField = "file"

type studentAPI struct {
	service   *student.Service
	subjects  *subject.Service
	analytics *analytics.Service
	validate  *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	authed echo.MiddlewareFunc,
	svc *student.Service,
	subjects *subject.Service,
	analyticsSvc *analytics.Service,
	validate *validator.Validate,
) {
	api := studentAPI{service: svc, subjects: subjects, analytics: analyticsSvc, validate: validate}

	students := g.Group("/students", authed)
	students.GET("", api.query)
	students.POST("", api.create)
	students.POST("/import", api.importSheet)
	students.GET("/import/template", api.importTemplate)
	students.GET("/:id", api.retrieve)
	students.PUT("/:id", api.update)
	students.DELETE("/:id", api.destroy)
	students.GET("/:id/subjects", api.enrolledSubjects)
	students.GET("/:id/report", api.report)
}

func (api *studentAPI) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to student.QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.service.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"students": students})
}

func (api *studentAPI) create(ctx echo.Context) error {
	ns := new(student.NewStudent)
	if err := ctx.Bind(ns); err != nil {
		return errors.Wrap(err, "binding to student.NewStudent")
	}
	if err := ns.Validate(ctx.Request().Context(), api.validate, api.service); err != nil {
		return err
	}
	s, err := api.service.Create(ctx.Request().Context(), *ns)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"message": "Student created successfully", "student": s})
}

func (api *studentAPI) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, student.ErrNotFound)
	if err != nil {
		return err
	}
	detail, err := api.service.GetDetail(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"student": detail.Student, "subjects": detail.Subjects})
}

func (api *studentAPI) update(ctx echo.Context) error {
	id, err := pathID(ctx, student.ErrNotFound)
	if err != nil {
		return err
	}
	orig, err := api.service.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	us := new(student.UpdateStudent)
	if err = ctx.Bind(us); err != nil {
		return errors.Wrap(err, "binding to student.UpdateStudent")
	}
	if err = us.Validate(ctx.Request().Context(), api.validate, api.service, orig); err != nil {
		return err
	}
	s, err := api.service.Update(ctx.Request().Context(), orig, *us)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "Student updated successfully", "student": s})
}

func (api *studentAPI) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, student.ErrNotFound)
	if err != nil {
		return err
	}
	if err = api.service.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"message": "Student deleted successfully"})
}

func (api *studentAPI) enrolledSubjects(ctx echo.Context) error {
	id, err := pathID(ctx, student.ErrNotFound)
	if err != nil {
		return err
	}
	subjects, err := api.subjects.StudentSubjects(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"subjects": subjects})
}

func (api *studentAPI) report(ctx echo.Context) error {
	id, err := pathID(ctx, student.ErrNotFound)
	if err != nil {
		return err
	}
	rep, err := api.analytics.StudentReport(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"student": rep.Student, "grades": rep.Marks, "stats": rep.Stats})
}

func (api *studentAPI) importSheet(ctx echo.Context) error {
	if _, err := core.RequireIdentity(ctx.Request().Context()); err != nil {
		return err
	}
	fh, err := ctx.FormFile(importFileField)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: importFileField, Error: "an .xlsx file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	rows, err := spreadsheet.ReadStudents(f)
	if err != nil {
		return err
	}
	created, err := api.service.Import(ctx.Request().Context(), api.validate, rows)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{
		"message":  "Students imported successfully",
		"imported": len(created),
		"students": created,
	})
}

func (api *studentAPI) importTemplate(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="students.xlsx"`)
	ctx.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	ctx.Response().WriteHeader(http.StatusOK)
	return spreadsheet.WriteStudentTemplate(ctx.Response())
}
