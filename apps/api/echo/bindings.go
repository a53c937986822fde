package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/thusykanna/school-management-system-v1/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// pathID reads the `:id` path param. A malformed id cannot name a row, so it fails with notFound.
func pathID(ctx echo.Context, notFound error) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}

// intQueryParam reads an optional positive integer query param, falling back to def.
func intQueryParam(ctx echo.Context, name string, def int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a whole number"})
	}
	return n, nil
}

// respond wraps payload in the success envelope shared by every endpoint.
func respond(ctx echo.Context, code int, payload echo.Map) error {
	if payload == nil {
		payload = echo.Map{}
	}
	payload["success"] = true
	return ctx.JSON(code, payload)
}
