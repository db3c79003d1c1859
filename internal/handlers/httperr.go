package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parkgate/ticketing-service/internal/domain"
)

// problem is the error payload returned on every non-2xx response
type problem struct {
	Type   string                 `json:"type"`
	Title  string                 `json:"title"`
	Status int                    `json:"status"`
	Detail string                 `json:"detail"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// respondError maps a service error onto the HTTP status taxonomy:
// not-found 404, validation 400, forbidden 403, state conflicts 409,
// everything else 500.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	title := "Internal Server Error"

	switch {
	case domain.IsNotFoundError(err):
		status = http.StatusNotFound
		title = "Not Found"
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
		title = "Validation Failed"
	case domain.IsForbiddenError(err):
		status = http.StatusForbidden
		title = "Forbidden"
	case domain.IsConflictError(err):
		status = http.StatusConflict
		title = "Conflict"
	}

	p := problem{
		Type:   string(domain.GetErrorCode(err)),
		Title:  title,
		Status: status,
		Detail: err.Error(),
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && len(domainErr.Details) > 0 {
		p.Meta = domainErr.Details
	}
	return c.JSON(status, p)
}
