package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
)

type errorResponse struct {
	Success bool              `json:"success"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var kindStatus = map[core.Kind]int{
	core.KindUnauthorized: http.StatusUnauthorized,
	core.KindValidation:   http.StatusBadRequest,
	core.KindNotFound:     http.StatusNotFound,
	core.KindStorage:      http.StatusInternalServerError,
}

func statusKind(code int) core.Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return core.KindUnauthorized
	case code == http.StatusNotFound || code == http.StatusMethodNotAllowed:
		return core.KindNotFound
	case code >= http.StatusInternalServerError:
		return core.KindStorage
	default:
		return core.KindValidation
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders every failure as
// {"success": false, "kind": ..., "message": ...}.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		kind := core.KindOf(err)
		resp := errorResponse{Kind: kind.String()}
		code := kindStatus[kind]

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			kind = statusKind(code)
			resp.Kind = kind.String()
			resp.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			resp.Message = "invalid input"
			resp.Fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				resp.Fields[vErr.Field()] = vErr.Translate(translator)
			}
		case *core.ValidationError:
			resp.Message = origErr.Error()
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.NotFoundError:
			resp.Message = origErr.Error()
		default:
			if kind == core.KindUnauthorized {
				resp.Message = "Unauthorized"
				break
			}
			resp.Message = "storage error"
			id, _ := core.IdentityFromContext(ctx.Request().Context())
			logger.Error(resp.Message, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), id)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && kind == core.KindStorage {
			resp.Message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
