package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

// RefundHandler serves the refund workflow endpoints
type RefundHandler struct {
	refunds ports.RefundService
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(refunds ports.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// RegisterRoutes mounts the refund endpoints
func (h *RefundHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/refunds")
	g.POST("/request", h.Request)
	g.POST("/:id/process", h.Process)
	g.POST("/batch", h.Batch)
	g.GET("/ticket/:ticketId", h.GetByTicket)
}

type requestRefundRequest struct {
	TicketID    string `json:"ticket_id"`
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
	AsAdmin     bool   `json:"as_admin"`
	ProcessorID string `json:"processor_id"`
}

type processRefundRequest struct {
	Decision    string `json:"decision"` // approve | reject
	ProcessorID string `json:"processor_id"`
	Notes       string `json:"notes"`
}

type batchRefundRequest struct {
	TicketIDs   []string `json:"ticket_ids"`
	Reason      string   `json:"reason"`
	ProcessorID string   `json:"processor_id"`
}

type refundResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Refund  refundPart `json:"refund"`
}

type refundPart struct {
	ID       string          `json:"id"`
	TicketID string          `json:"ticket_id"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
	Reason   string          `json:"reason,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

type batchRefundResponse struct {
	Success       bool              `json:"success"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	TotalRefunded decimal.Decimal   `json:"total_refunded"`
	Results       []batchRefundItem `json:"results"`
}

type batchRefundItem struct {
	TicketID string          `json:"ticket_id"`
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Amount   decimal.Decimal `json:"amount"`
}

// Request opens a refund for one ticket
func (h *RefundHandler) Request(c echo.Context) error {
	var req requestRefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ticketID, err := uuid.Parse(req.TicketID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}
	requestedBy, err := uuid.Parse(req.RequestedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid requester id")
	}
	var processorID uuid.UUID
	if req.AsAdmin {
		processorID, err = uuid.Parse(req.ProcessorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "admin requests require a processor id")
		}
	}

	result, err := h.refunds.RequestRefund(c.Request().Context(), ports.RequestRefundRequest{
		TicketID:       ticketID,
		RequestedBy:    requestedBy,
		Reason:         req.Reason,
		IsAdminRequest: req.AsAdmin,
		ProcessorID:    processorID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toRefundResponse(result))
}

// Process applies a staff decision to a pending refund
func (h *RefundHandler) Process(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid refund id")
	}

	var req processRefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	decision := domain.RefundDecision(req.Decision)
	if decision != domain.RefundDecisionApprove && decision != domain.RefundDecisionReject {
		return echo.NewHTTPError(http.StatusBadRequest, "decision must be approve or reject")
	}
	processorID, err := uuid.Parse(req.ProcessorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid processor id")
	}

	result, err := h.refunds.ProcessRefund(c.Request().Context(), ports.ProcessRefundRequest{
		RefundID:    id,
		Decision:    decision,
		ProcessorID: processorID,
		Notes:       req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toRefundResponse(result))
}

// Batch refunds several tickets in one call, reporting per-ticket outcomes
func (h *RefundHandler) Batch(c echo.Context) error {
	var req batchRefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	processorID, err := uuid.Parse(req.ProcessorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid processor id")
	}

	ticketIDs := make([]uuid.UUID, 0, len(req.TicketIDs))
	for _, raw := range req.TicketIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id: "+raw)
		}
		ticketIDs = append(ticketIDs, id)
	}

	result, err := h.refunds.BatchRefund(c.Request().Context(), ports.BatchRefundRequest{
		TicketIDs:   ticketIDs,
		Reason:      req.Reason,
		ProcessorID: processorID,
	})
	if err != nil {
		return respondError(c, err)
	}

	resp := batchRefundResponse{
		Success:       result.Failed == 0,
		Succeeded:     result.Succeeded,
		Failed:        result.Failed,
		TotalRefunded: result.TotalRefunded,
	}
	for _, item := range result.Results {
		resp.Results = append(resp.Results, batchRefundItem{
			TicketID: item.TicketID.String(),
			Success:  item.Success,
			Message:  item.Message,
			Amount:   item.Amount,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByTicket returns the refund record of a ticket
func (h *RefundHandler) GetByTicket(c echo.Context) error {
	ticketID, err := uuid.Parse(c.Param("ticketId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	record, err := h.refunds.GetByTicket(c.Request().Context(), ticketID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, refundResponse{
		Success: true,
		Message: "ok",
		Refund:  toRefundPart(record),
	})
}

func toRefundResponse(result *ports.RefundResult) refundResponse {
	return refundResponse{
		Success: true,
		Message: result.Message,
		Refund:  toRefundPart(result.Record),
	}
}

func toRefundPart(record *domain.RefundRecord) refundPart {
	return refundPart{
		ID:       record.ID.String(),
		TicketID: record.TicketID.String(),
		Amount:   record.Amount,
		Status:   string(record.Status),
		Reason:   record.Reason,
		Notes:    record.Notes,
	}
}
