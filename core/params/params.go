package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QueryParams holds the common list-endpoint query parameters.
type QueryParams struct {
	PageNumber int
	PageSize   int
	Search     string
}

// NewQueryParams parses page/page_size/search from the request, applying
// defaults and clamping the page size.
func NewQueryParams(c echo.Context) QueryParams {
	params := QueryParams{
		PageNumber: 1,
		PageSize:   defaultPageSize,
		Search:     c.QueryParam("search"),
	}

	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		params.PageNumber = page
	}
	if size, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && size > 0 {
		if size > maxPageSize {
			size = maxPageSize
		}
		params.PageSize = size
	}

	return params
}

// Offset returns the SQL offset for the current page.
func (p QueryParams) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}
