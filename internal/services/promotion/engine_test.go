package promotion_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
	"github.com/parkgate/ticketing-service/internal/services/promotion"
)

// MockPromotionRepository mocks the promotion repository
type MockPromotionRepository struct {
	mock.Mock
}

func (m *MockPromotionRepository) ListActive(ctx context.Context, db ports.DBTX) ([]*domain.Promotion, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) CountUsageByVisitor(ctx context.Context, db ports.DBTX, promotionID, visitorID uuid.UUID) (int32, error) {
	args := m.Called(ctx, db, promotionID, visitorID)
	return args.Get(0).(int32), args.Error(1)
}

func (m *MockPromotionRepository) IncrementUsage(ctx context.Context, tx ports.DBTX, promotionID, visitorID uuid.UUID) error {
	args := m.Called(ctx, tx, promotionID, visitorID)
	return args.Error(0)
}

// MockLogger mocks the logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, fields ...ports.Field)  {}
func (m *MockLogger) Error(msg string, fields ...ports.Field) {}
func (m *MockLogger) Warn(msg string, fields ...ports.Field)  {}
func (m *MockLogger) Debug(msg string, fields ...ports.Field) {}

var (
	julyFifteenth = time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	summerStart   = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	summerEnd     = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
)

func activePromotion(name string, priority int32, combinable bool) *domain.Promotion {
	p := &domain.Promotion{
		ID:         uuid.New(),
		Name:       name,
		Type:       domain.PromotionTypePercent,
		StartsAt:   summerStart,
		EndsAt:     summerEnd,
		Combinable: combinable,
		Priority:   priority,
		Active:     true,
	}
	return p
}

func percentOff(promotionID uuid.UUID, percent int64) domain.PromotionAction {
	pct := decimal.NewFromInt(percent)
	return domain.PromotionAction{
		ID:          uuid.New(),
		PromotionID: promotionID,
		Type:        domain.ActionPercentOff,
		Percent:     &pct,
	}
}

func visitor() domain.VisitorContext {
	return domain.VisitorContext{VisitorID: uuid.New(), VisitorType: "adult"}
}

func TestEngine_Evaluate_NoPromotionsLeavesCartUntouched(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines: []ports.CartLine{
			{TicketTypeID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(40)},
		},
	}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.True(t, result.TotalDiscount.IsZero())
	require.Len(t, result.Lines, 1)
	assert.True(t, result.Lines[0].Discount.IsZero())
	assert.True(t, result.Lines[0].UnitPrice.Equal(decimal.NewFromInt(40)))
}

// Two adult tickets at the seasonal 40.00 price with a 10% summer discount:
// the reservation ends at 72.00 with an 8.00 discount.
func TestEngine_Evaluate_PercentOffSummerCart(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	adultID := uuid.New()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines: []ports.CartLine{
			{TicketTypeID: adultID, Quantity: 2, UnitPrice: decimal.NewFromInt(40)},
		},
	}

	summer := activePromotion("SummerDiscount", 1, false)
	summer.Actions = []domain.PromotionAction{percentOff(summer.ID, 10)}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{summer}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "SummerDiscount", result.Applied[0].Name)
	assert.True(t, result.Lines[0].Discount.Equal(decimal.NewFromInt(8)), "got %s", result.Lines[0].Discount)
	assert.True(t, result.TotalDiscount.Equal(decimal.NewFromInt(8)))
}

func TestEngine_Evaluate_MinQuantityConditionGates(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	adultID := uuid.New()

	minQty := int32(3)
	group := activePromotion("GroupDeal", 1, false)
	group.Conditions = []domain.PromotionCondition{{
		ID:          uuid.New(),
		PromotionID: group.ID,
		Type:        domain.ConditionMinQuantity,
		MinQuantity: &minQty,
	}}
	group.Actions = []domain.PromotionAction{percentOff(group.ID, 20)}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{group}, nil)

	small := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: adultID, Quantity: 2, UnitPrice: decimal.NewFromInt(40)}},
	}
	result, err := engine.Evaluate(ctx, small, visitor())
	require.NoError(t, err)
	assert.Empty(t, result.Applied)

	big := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: adultID, Quantity: 3, UnitPrice: decimal.NewFromInt(40)}},
	}
	result, err = engine.Evaluate(ctx, big, visitor())
	require.NoError(t, err)
	assert.Len(t, result.Applied, 1)
}

func TestEngine_Evaluate_NonCombinableStopsLowerPriority(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	}

	exclusive := activePromotion("Exclusive", 1, false)
	exclusive.Actions = []domain.PromotionAction{percentOff(exclusive.ID, 10)}
	stackable := activePromotion("Stackable", 2, true)
	stackable.Actions = []domain.PromotionAction{percentOff(stackable.ID, 5)}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{stackable, exclusive}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "Exclusive", result.Applied[0].Name)
	assert.True(t, result.TotalDiscount.Equal(decimal.NewFromInt(10)))
}

func TestEngine_Evaluate_CombinablePromotionsStack(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	}

	first := activePromotion("First", 1, true)
	first.Actions = []domain.PromotionAction{percentOff(first.ID, 10)}
	second := activePromotion("Second", 2, true)
	second.Actions = []domain.PromotionAction{percentOff(second.ID, 5)}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{first, second}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	assert.Len(t, result.Applied, 2)
	// 10% then 5%, both of the 100.00 gross
	assert.True(t, result.TotalDiscount.Equal(decimal.NewFromInt(15)))
}

func TestEngine_Evaluate_DiscountNeverExceedsLineGross(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	}

	amount := decimal.NewFromInt(50)
	generous := activePromotion("Generous", 1, false)
	generous.Actions = []domain.PromotionAction{{
		ID:          uuid.New(),
		PromotionID: generous.ID,
		Type:        domain.ActionAmountOff,
		Amount:      &amount,
	}}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{generous}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	assert.True(t, result.Lines[0].Discount.Equal(decimal.NewFromInt(20)))
	assert.True(t, result.TotalDiscount.Equal(decimal.NewFromInt(20)))
}

func TestEngine_Evaluate_FixedPriceOverridesUnitPrice(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	childID := uuid.New()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: childID, Quantity: 2, UnitPrice: decimal.NewFromInt(25)}},
	}

	fixed := decimal.NewFromInt(15)
	kidsDay := activePromotion("KidsDay", 1, false)
	kidsDay.Actions = []domain.PromotionAction{{
		ID:                 uuid.New(),
		PromotionID:        kidsDay.ID,
		Type:               domain.ActionFixedPrice,
		TargetTicketTypeID: &childID,
		Amount:             &fixed,
	}}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{kidsDay}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	assert.True(t, result.Lines[0].UnitPrice.Equal(fixed))
	// 2x25 gross down to 2x15 final
	assert.True(t, result.TotalDiscount.Equal(decimal.NewFromInt(20)))
}

func TestEngine_Evaluate_FreeTicketAndGiftPoints(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	adultID := uuid.New()
	childID := uuid.New()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: adultID, Quantity: 2, UnitPrice: decimal.NewFromInt(40)}},
	}

	qty := int32(1)
	points := int32(200)
	family := activePromotion("FamilyBundle", 1, false)
	family.Actions = []domain.PromotionAction{
		{
			ID:                 uuid.New(),
			PromotionID:        family.ID,
			Type:               domain.ActionFreeTicket,
			TargetTicketTypeID: &childID,
			Quantity:           &qty,
			Position:           0,
		},
		{
			ID:          uuid.New(),
			PromotionID: family.ID,
			Type:        domain.ActionGiftPoints,
			Points:      &points,
			Position:    1,
		},
	}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{family}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	require.Len(t, result.Gifts, 1)
	assert.Equal(t, childID, result.Gifts[0].TicketTypeID)
	assert.Equal(t, int32(1), result.Gifts[0].Quantity)
	assert.Equal(t, int32(200), result.GiftPoints)
	// Gifts are free, paid lines untouched
	assert.True(t, result.TotalDiscount.IsZero())
}

func TestEngine_Evaluate_TotalLimitExhaustedExcludesPromotion(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(40)}},
	}

	limit := int32(100)
	spent := activePromotion("Spent", 1, false)
	spent.TotalLimit = &limit
	spent.UsedCount = 100
	spent.Actions = []domain.PromotionAction{percentOff(spent.ID, 10)}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{spent}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	assert.Empty(t, result.Applied)
}

func TestEngine_Evaluate_PerUserLimitExcludesRepeatVisitor(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	vis := visitor()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(40)}},
	}

	perUser := int32(1)
	once := activePromotion("OncePerVisitor", 1, false)
	once.PerUserLimit = &perUser
	once.Actions = []domain.PromotionAction{percentOff(once.ID, 10)}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{once}, nil)
	mockRepo.On("CountUsageByVisitor", ctx, nil, once.ID, vis.VisitorID).Return(int32(1), nil)

	result, err := engine.Evaluate(ctx, cart, vis)
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
}

func TestEngine_Evaluate_MalformedActionSurfacesValidationError(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	cart := ports.Cart{
		VisitDate: julyFifteenth,
		Lines:     []ports.CartLine{{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(40)}},
	}

	// free_ticket without a target ticket type
	qty := int32(1)
	broken := activePromotion("Broken", 1, false)
	broken.Actions = []domain.PromotionAction{{
		ID:          uuid.New(),
		PromotionID: broken.ID,
		Type:        domain.ActionFreeTicket,
		Quantity:    &qty,
	}}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{broken}, nil)

	_, err := engine.Evaluate(ctx, cart, visitor())

	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestEngine_Evaluate_WindowExcludesOutOfSeasonVisit(t *testing.T) {
	mockRepo := new(MockPromotionRepository)
	engine := promotion.NewEngine(mockRepo, new(MockLogger))

	ctx := context.Background()
	cart := ports.Cart{
		VisitDate: time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC),
		Lines:     []ports.CartLine{{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(40)}},
	}

	summer := activePromotion("SummerDiscount", 1, false)
	summer.Actions = []domain.PromotionAction{percentOff(summer.ID, 10)}

	mockRepo.On("ListActive", ctx, nil).Return([]*domain.Promotion{summer}, nil)

	result, err := engine.Evaluate(ctx, cart, visitor())

	require.NoError(t, err)
	assert.Empty(t, result.Applied)
}
