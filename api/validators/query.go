package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/pagination"
)

// PaginationParams reads limit/cursor query parameters. The limit is clamped
// downstream; a non-numeric limit is a validation error rather than silently
// ignored.
func PaginationParams(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{Cursor: r.URL.Query().Get("cursor")}

	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return params, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer")
	}
	params.Limit = limit
	return params, nil
}
