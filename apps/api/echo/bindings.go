package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

var orderingParam = "ordering"

// Ordering binds the `ordering` query param, eg: `?ordering=-createdAt,name`.
// Fields are JSON names; those missing from the allowed map are dropped.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
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
		if column, ok := allowed[field]; ok {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: column, Ascending: !descending})
		}
	}
}

// IDsQuery binds repeated `id` query params, eg: `?id=1&id=2`.
type IDsQuery struct {
	IDs []string `query:"id"`
}
