// Package handlers exposes the ticketing core over HTTP.
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
	"github.com/parkgate/ticketing-service/pkg/timeutil"
)

// ReservationHandler serves the reservation lifecycle endpoints
type ReservationHandler struct {
	reservations ports.ReservationService
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservations ports.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// RegisterRoutes mounts the reservation endpoints
func (h *ReservationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/reservations")
	g.POST("", h.Create)
	g.POST("/:id/pay", h.Pay)
	g.POST("/:id/cancel", h.Cancel)
	g.GET("/:id", h.Get)
}

type createReservationRequest struct {
	VisitorID     string                   `json:"visitor_id"`
	VisitorType   string                   `json:"visitor_type"`
	MemberLevel   string                   `json:"member_level"`
	VisitDate     string                   `json:"visit_date"`
	PaymentMethod string                   `json:"payment_method"`
	Items         []reservationItemRequest `json:"items"`
}

type reservationItemRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int32  `json:"quantity"`
}

type payReservationRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type cancelReservationRequest struct {
	RequestedBy string `json:"requested_by"`
	ProcessorID string `json:"processor_id"`
	Reason      string `json:"reason"`
}

type reservationResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Reservation reservationPart `json:"reservation"`
	Tickets     []ticketPart    `json:"tickets,omitempty"`
}

type reservationPart struct {
	ID             string          `json:"id"`
	VisitorID      string          `json:"visitor_id"`
	VisitDate      string          `json:"visit_date"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"payment_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Items          []itemPart      `json:"items"`
}

type itemPart struct {
	TicketTypeID   string          `json:"ticket_type_id"`
	Quantity       int32           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

type ticketPart struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serial_number"`
	Status       string `json:"status"`
	ValidFrom    string `json:"valid_from"`
	ValidUntil   string `json:"valid_until"`
}

// Create books a new reservation from a cart
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	visitorID, err := uuid.Parse(req.VisitorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visitor id")
	}
	visitDate, err := timeutil.ParseDate("2006-01-02", req.VisitDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit date, expected YYYY-MM-DD")
	}

	items := make([]ports.ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		typeID, err := uuid.Parse(it.TicketTypeID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket type id")
		}
		items = append(items, ports.ItemRequest{TicketTypeID: typeID, Quantity: it.Quantity})
	}

	result, err := h.reservations.Create(c.Request().Context(), ports.CreateReservationRequest{
		VisitorID:     visitorID,
		VisitorType:   req.VisitorType,
		MemberLevel:   req.MemberLevel,
		VisitDate:     visitDate,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(result))
}

// Pay completes payment on a pending reservation and issues its tickets
func (h *ReservationHandler) Pay(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
	}

	var req payReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.reservations.Pay(c.Request().Context(), ports.PayReservationRequest{
		ReservationID: id,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(result))
}

// Cancel cancels a reservation, cascading through refunds when already paid
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
	}

	var req cancelReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	requestedBy, err := uuid.Parse(req.RequestedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid requester id")
	}
	processorID, err := uuid.Parse(req.ProcessorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid processor id")
	}

	result, err := h.reservations.Cancel(c.Request().Context(), ports.CancelReservationRequest{
		ReservationID: id,
		RequestedBy:   requestedBy,
		ProcessorID:   processorID,
		Reason:        req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(result))
}

// Get returns a reservation with its items
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
	}

	reservation, err := h.reservations.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reservationResponse{
		Success:     true,
		Message:     "ok",
		Reservation: toReservationPart(reservation),
	})
}

func toReservationResponse(result *ports.ReservationResult) reservationResponse {
	resp := reservationResponse{
		Success:     true,
		Message:     result.Message,
		Reservation: toReservationPart(result.Reservation),
	}
	for _, t := range result.Tickets {
		resp.Tickets = append(resp.Tickets, ticketPart{
			ID:           t.ID.String(),
			SerialNumber: t.SerialNumber,
			Status:       string(t.Status),
			ValidFrom:    t.ValidFrom.Format("2006-01-02"),
			ValidUntil:   t.ValidUntil.Format("2006-01-02"),
		})
	}
	return resp
}

func toReservationPart(r *domain.Reservation) reservationPart {
	part := reservationPart{
		ID:             r.ID.String(),
		VisitorID:      r.VisitorID.String(),
		VisitDate:      r.VisitDate.Format("2006-01-02"),
		Status:         string(r.Status),
		PaymentStatus:  string(r.PaymentStatus),
		TotalAmount:    r.TotalAmount,
		DiscountAmount: r.DiscountAmount,
	}
	for _, item := range r.Items {
		part.Items = append(part.Items, itemPart{
			TicketTypeID:   item.TicketTypeID.String(),
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountAmount: item.DiscountAmount,
			LineTotal:      item.LineTotal,
		})
	}
	return part
}
