package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

var orderingParam = "ordering"

// Ordering binds the comma-separated "ordering" query param; a leading "-"
// means descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Desc: descending})
	}
}

// TaskSort binds the "sort_by"/"direction" query params to the task sort
// allow-list; unknown fields fall back to the default order.
type TaskSort struct {
	SortBy    string `query:"sort_by"`
	Direction string `query:"direction"`
}

func (ts *TaskSort) Ordering(ctx echo.Context) []core.DBOrdering {
	if err := ctx.Bind(ts); err != nil {
		return task.DefaultOrdering()
	}
	if ts.SortBy == "" {
		return task.DefaultOrdering()
	}
	desc := strings.EqualFold(strings.TrimSpace(ts.Direction), "desc")
	return task.Ordering(ts.SortBy, desc)
}
