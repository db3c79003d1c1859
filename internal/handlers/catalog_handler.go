package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// CatalogHandler serves the ticket-type catalog endpoints
type CatalogHandler struct {
	catalog ports.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterRoutes mounts the catalog endpoints
func (h *CatalogHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/ticket-types")
	g.GET("", h.List)
	g.PUT("/:id/price", h.CorrectPrice)
}

type ticketTypePart struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BasePrice    decimal.Decimal `json:"base_price"`
	MaxSaleLimit *int32          `json:"max_sale_limit,omitempty"`
	Eligibility  string          `json:"eligibility"`
}

type correctPriceRequest struct {
	BasePrice decimal.Decimal `json:"base_price"`
	ChangedBy string          `json:"changed_by"`
}

// List returns the full catalog
func (h *CatalogHandler) List(c echo.Context) error {
	types, err := h.catalog.ListTicketTypes(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	parts := make([]ticketTypePart, 0, len(types))
	for _, t := range types {
		parts = append(parts, ticketTypePart{
			ID:           t.ID.String(),
			Name:         t.Name,
			BasePrice:    t.BasePrice,
			MaxSaleLimit: t.MaxSaleLimit,
			Eligibility:  t.Eligibility,
		})
	}
	return c.JSON(http.StatusOK, parts)
}

// CorrectPrice applies an audited administrative price correction
func (h *CatalogHandler) CorrectPrice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket type id")
	}

	var req correctPriceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	changedBy, err := uuid.Parse(req.ChangedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid changed_by id")
	}

	if err := h.catalog.CorrectBasePrice(c.Request().Context(), id, req.BasePrice, changedBy); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
