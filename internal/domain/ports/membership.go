package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MembershipGateway is the narrow interface to the external membership/points
// collaborator. Point awards are fire-and-forget after payment commits;
// the discount multiplier is consulted during reservation pricing.
type MembershipGateway interface {
	// AwardPoints schedules a point award for the visitor
	AwardPoints(ctx context.Context, visitorID uuid.UUID, points int32) error

	// DiscountMultiplier returns the fraction of the price the member pays
	// (1 for non-members, e.g. 0.95 for a gold member)
	DiscountMultiplier(ctx context.Context, visitorID uuid.UUID, memberLevel string) (decimal.Decimal, error)
}
