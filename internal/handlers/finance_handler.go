package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain/ports"
	"github.com/parkgate/ticketing-service/pkg/timeutil"
)

// FinanceHandler serves the ledger reporting endpoint
type FinanceHandler struct {
	finance ports.FinanceService
}

// NewFinanceHandler creates a new finance handler
func NewFinanceHandler(finance ports.FinanceService) *FinanceHandler {
	return &FinanceHandler{finance: finance}
}

// RegisterRoutes mounts the finance endpoints
func (h *FinanceHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/financial/ledger", h.LedgerRange)
}

type ledgerEntryPart struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date"`
	Description     string          `json:"description"`
	ReferenceID     string          `json:"reference_id,omitempty"`
}

type ledgerReportResponse struct {
	From         string            `json:"from"`
	To           string            `json:"to"`
	TotalIncome  decimal.Decimal   `json:"total_income"`
	TotalExpense decimal.Decimal   `json:"total_expense"`
	Net          decimal.Decimal   `json:"net"`
	Entries      []ledgerEntryPart `json:"entries"`
}

// LedgerRange returns the ledger entries and totals for [from, to)
func (h *FinanceHandler) LedgerRange(c echo.Context) error {
	from, err := timeutil.ParseDate("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := timeutil.ParseDate("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
	}

	report, err := h.finance.LedgerRange(c.Request().Context(), from, to)
	if err != nil {
		return respondError(c, err)
	}

	resp := ledgerReportResponse{
		From:         report.From.Format("2006-01-02"),
		To:           report.To.Format("2006-01-02"),
		TotalIncome:  report.TotalIncome,
		TotalExpense: report.TotalExpense,
		Net:          report.Net,
		Entries:      make([]ledgerEntryPart, 0, len(report.Entries)),
	}
	for _, entry := range report.Entries {
		part := ledgerEntryPart{
			ID:              entry.ID.String(),
			Type:            string(entry.Type),
			Amount:          entry.Amount,
			TransactionDate: entry.TransactionDate.Format("2006-01-02"),
			Description:     entry.Description,
		}
		if entry.ReferenceID != nil {
			part.ReferenceID = entry.ReferenceID.String()
		}
		resp.Entries = append(resp.Entries, part)
	}
	return c.JSON(http.StatusOK, resp)
}
