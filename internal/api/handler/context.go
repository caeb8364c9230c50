package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kavaavi/career-portal/internal/api/middleware"
	"github.com/kavaavi/career-portal/internal/core/service"
)

// sessionCell returns the cell the Session middleware installed. Its absence
// means the route was registered without the middleware.
func sessionCell(c echo.Context) (*service.SessionCell, error) {
	cell := middleware.Cell(c)
	if cell == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	return cell, nil
}
