package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/pkg/timeutil"
)

// issueTickets materializes one ticket per unit of quantity on every item of
// a paid reservation. Each ticket carries a globally unique serial number and
// is valid from the visit date's midnight through the next midnight exclusive.
// Issuance is purely additive: exactly sum(quantity) tickets, never more.
func issueTickets(reservation *domain.Reservation, issuedAt time.Time) []*domain.Ticket {
	validFrom, validUntil := timeutil.DayWindow(reservation.VisitDate)

	var tickets []*domain.Ticket
	for _, item := range reservation.Items {
		for unit := int32(0); unit < item.Quantity; unit++ {
			visitorID := reservation.VisitorID
			tickets = append(tickets, &domain.Ticket{
				ID:                uuid.New(),
				SerialNumber:      serialNumber(issuedAt),
				ReservationItemID: item.ID,
				VisitorID:         &visitorID,
				ValidFrom:         validFrom,
				ValidUntil:        validUntil,
				Status:            domain.TicketStatusIssued,
				IssuedAt:          issuedAt,
			})
		}
	}
	return tickets
}

// serialNumber builds a date-stamped serial with a random suffix,
// e.g. TKT-20260901-9F1C04A2B7D3
func serialNumber(issuedAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:12]
	return fmt.Sprintf("TKT-%s-%s", issuedAt.Format("20060102"), suffix)
}
