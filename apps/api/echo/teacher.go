package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core/teacher"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"` // username or email
	Password string `json:"password" validate:"required"`
}

type teacherAPI struct {
	auth     *authenticator
	service  *teacher.Service
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, authed echo.MiddlewareFunc, auth *authenticator, svc *teacher.Service, validate *validator.Validate) {
	api := teacherAPI{auth: auth, service: svc, validate: validate}

	g.POST("/auth/signup", api.signup)
	g.POST("/auth/login", api.login)
	g.POST("/auth/logout", api.logout)
	g.POST("/auth/token-refresh", api.refresh, authed)
	g.GET("/auth/me", api.me, authed)
}

func (api *teacherAPI) signup(ctx echo.Context) error {
	nt := new(teacher.NewTeacher)
	if err := ctx.Bind(nt); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := nt.Validate(ctx.Request().Context(), api.validate, api.service); err != nil {
		return err
	}
	t, err := api.service.Signup(ctx.Request().Context(), *nt)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"message": "Account created successfully", "teacher": t})
}

func (api *teacherAPI) login(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	t, err := api.service.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.auth.conf, GetTeacherClaims(api.auth.conf, t))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.auth.setSessionCookie(ctx, token)
	return respond(ctx, http.StatusOK, echo.Map{"message": "Login successful", "token": token, "teacher": t})
}

func (api *teacherAPI) logout(ctx echo.Context) error {
	api.auth.revokeSession(ctx)
	api.auth.clearSessionCookie(ctx)
	return respond(ctx, http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (api *teacherAPI) refresh(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return err
	}
	api.auth.setSessionCookie(ctx, token)
	return respond(ctx, http.StatusOK, echo.Map{"token": token})
}

func (api *teacherAPI) me(ctx echo.Context) error {
	t, err := api.service.Me(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"teacher": t})
}
