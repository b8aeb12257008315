package common

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireIDParam extracts a positive integer route parameter or returns a 400 error.
func RequireIDParam(c echo.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
	}
	return id, nil
}

// WantsJSON reports whether the first of JSON or HTML in the Accept header
// is JSON. Browsers and clients that send neither get HTML.
func WantsJSON(c echo.Context) bool {
	for _, part := range strings.Split(c.Request().Header.Get(echo.HeaderAccept), ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		switch strings.TrimSpace(mediaType) {
		case echo.MIMEApplicationJSON:
			return true
		case echo.MIMETextHTML:
			return false
		}
	}
	return false
}
