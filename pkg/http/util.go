package http

import (
	"time"

	"PoolCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// QueryInt reads an int query param with a fallback default.
func QueryInt(c echo.Context, name string, def int) int {
	return util.ParseIntDefault(c.QueryParam(name), def)
}

// QueryBool reads a bool query param with a fallback default.
func QueryBool(c echo.Context, name string, def bool) bool {
	return util.ParseBoolDefault(c.QueryParam(name), def)
}

// QueryTime reads a time query param (RFC3339 or unix seconds) with a
// fallback default.
func QueryTime(c echo.Context, name string, def time.Time) time.Time {
	return util.ParseTimeDefault(c.QueryParam(name), def)
}
