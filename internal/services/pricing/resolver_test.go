package pricing_test

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
	"github.com/parkgate/ticketing-service/internal/services/pricing"
)

// MockTicketTypeRepository mocks the ticket type repository
type MockTicketTypeRepository struct {
	mock.Mock
}

func (m *MockTicketTypeRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.TicketType, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketType), args.Error(1)
}

func (m *MockTicketTypeRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.TicketType, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketType), args.Error(1)
}

func (m *MockTicketTypeRepository) CountSold(ctx context.Context, db ports.DBTX, ticketTypeID uuid.UUID, visitDate time.Time) (int32, error) {
	args := m.Called(ctx, db, ticketTypeID, visitDate)
	return args.Get(0).(int32), args.Error(1)
}

func (m *MockTicketTypeRepository) UpdateBasePrice(ctx context.Context, tx ports.DBTX, id uuid.UUID, newPrice decimal.Decimal, changedBy uuid.UUID) error {
	args := m.Called(ctx, tx, id, newPrice, changedBy)
	return args.Error(0)
}

func (m *MockTicketTypeRepository) List(ctx context.Context, db ports.DBTX) ([]*domain.TicketType, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TicketType), args.Error(1)
}

// MockPriceRuleRepository mocks the price rule repository
type MockPriceRuleRepository struct {
	mock.Mock
}

func (m *MockPriceRuleRepository) ListByTicketType(ctx context.Context, db ports.DBTX, ticketTypeID uuid.UUID) ([]*domain.PriceRule, error) {
	args := m.Called(ctx, db, ticketTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PriceRule), args.Error(1)
}

// MockLogger mocks the logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, fields ...ports.Field)  {}
func (m *MockLogger) Error(msg string, fields ...ports.Field) {}
func (m *MockLogger) Warn(msg string, fields ...ports.Field)  {}
func (m *MockLogger) Debug(msg string, fields ...ports.Field) {}

func newResolver(t *testing.T) (*pricing.Resolver, *MockTicketTypeRepository, *MockPriceRuleRepository) {
	t.Helper()
	mockTypes := new(MockTicketTypeRepository)
	mockRules := new(MockPriceRuleRepository)
	return pricing.NewResolver(mockTypes, mockRules, new(MockLogger)), mockTypes, mockRules
}

func adultType(id uuid.UUID) *domain.TicketType {
	return &domain.TicketType{
		ID:        id,
		Name:      "Adult",
		BasePrice: decimal.NewFromInt(50),
	}
}

func TestResolver_Resolve_BasePriceWhenNoRuleMatches(t *testing.T) {
	resolver, mockTypes, mockRules := newResolver(t)

	ctx := context.Background()
	typeID := uuid.New()
	visitDate := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	mockTypes.On("GetByID", ctx, nil, typeID).Return(adultType(typeID), nil)
	mockRules.On("ListByTicketType", ctx, nil, typeID).Return([]*domain.PriceRule{
		{
			ID:             uuid.New(),
			TicketTypeID:   typeID,
			Priority:       1,
			EffectiveStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EffectiveEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Price:          decimal.NewFromInt(30),
		},
	}, nil)

	quote, err := resolver.Resolve(ctx, typeID, visitDate, 2)

	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(50)))
	assert.Nil(t, quote.AppliedRuleID)
}

func TestResolver_Resolve_SeasonalRuleOverridesBase(t *testing.T) {
	resolver, mockTypes, mockRules := newResolver(t)

	ctx := context.Background()
	typeID := uuid.New()
	visitDate := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	summer := &domain.PriceRule{
		ID:             uuid.New(),
		TicketTypeID:   typeID,
		Name:           "summer season",
		Priority:       1,
		EffectiveStart: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEnd:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Price:          decimal.NewFromInt(40),
	}

	mockTypes.On("GetByID", ctx, nil, typeID).Return(adultType(typeID), nil)
	mockRules.On("ListByTicketType", ctx, nil, typeID).Return([]*domain.PriceRule{summer}, nil)

	quote, err := resolver.Resolve(ctx, typeID, visitDate, 2)

	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, quote.AppliedRuleID)
	assert.Equal(t, summer.ID, *quote.AppliedRuleID)
}

func TestResolver_Resolve_LowerPriorityValueWins(t *testing.T) {
	resolver, mockTypes, mockRules := newResolver(t)

	ctx := context.Background()
	typeID := uuid.New()
	visitDate := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	weaker := &domain.PriceRule{
		ID: uuid.New(), TicketTypeID: typeID, Priority: 5,
		EffectiveStart: start, EffectiveEnd: end,
		Price: decimal.NewFromInt(45),
	}
	stronger := &domain.PriceRule{
		ID: uuid.New(), TicketTypeID: typeID, Priority: 1,
		EffectiveStart: start, EffectiveEnd: end,
		Price: decimal.NewFromInt(35),
	}

	mockTypes.On("GetByID", ctx, nil, typeID).Return(adultType(typeID), nil)
	mockRules.On("ListByTicketType", ctx, nil, typeID).
		Return([]*domain.PriceRule{weaker, stronger}, nil)

	quote, err := resolver.Resolve(ctx, typeID, visitDate, 1)

	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(35)))
	assert.Equal(t, stronger.ID, *quote.AppliedRuleID)
}

func TestResolver_Resolve_PriorityTieBreaksToNewerRule(t *testing.T) {
	resolver, mockTypes, mockRules := newResolver(t)

	ctx := context.Background()
	typeID := uuid.New()
	visitDate := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	older := &domain.PriceRule{
		ID: uuid.New(), TicketTypeID: typeID, Priority: 1,
		EffectiveStart: start, EffectiveEnd: end,
		Price:     decimal.NewFromInt(42),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &domain.PriceRule{
		ID: uuid.New(), TicketTypeID: typeID, Priority: 1,
		EffectiveStart: start, EffectiveEnd: end,
		Price:     decimal.NewFromInt(38),
		CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	mockTypes.On("GetByID", ctx, nil, typeID).Return(adultType(typeID), nil)
	mockRules.On("ListByTicketType", ctx, nil, typeID).
		Return([]*domain.PriceRule{older, newer}, nil)

	quote, err := resolver.Resolve(ctx, typeID, visitDate, 1)

	require.NoError(t, err)
	assert.Equal(t, newer.ID, *quote.AppliedRuleID)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(38)))
}

func TestResolver_Resolve_QuantityBoundsAreInclusive(t *testing.T) {
	resolver, mockTypes, mockRules := newResolver(t)

	ctx := context.Background()
	typeID := uuid.New()
	visitDate := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	minQty, maxQty := int32(5), int32(10)

	group := &domain.PriceRule{
		ID: uuid.New(), TicketTypeID: typeID, Priority: 1,
		EffectiveStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEnd:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		MinQuantity:    &minQty,
		MaxQuantity:    &maxQty,
		Price:          decimal.NewFromInt(30),
	}

	mockTypes.On("GetByID", ctx, nil, typeID).Return(adultType(typeID), nil)
	mockRules.On("ListByTicketType", ctx, nil, typeID).Return([]*domain.PriceRule{group}, nil)

	// At the lower bound the rule applies
	quote, err := resolver.Resolve(ctx, typeID, visitDate, 5)
	require.NoError(t, err)
	assert.NotNil(t, quote.AppliedRuleID)

	// Below it the base price applies
	quote, err = resolver.Resolve(ctx, typeID, visitDate, 4)
	require.NoError(t, err)
	assert.Nil(t, quote.AppliedRuleID)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(50)))

	// At the upper bound the rule still applies
	quote, err = resolver.Resolve(ctx, typeID, visitDate, 10)
	require.NoError(t, err)
	assert.NotNil(t, quote.AppliedRuleID)

	// Above it the base price applies
	quote, err = resolver.Resolve(ctx, typeID, visitDate, 11)
	require.NoError(t, err)
	assert.Nil(t, quote.AppliedRuleID)
}

func TestResolver_Resolve_WindowEndIsExclusive(t *testing.T) {
	resolver, mockTypes, mockRules := newResolver(t)

	ctx := context.Background()
	typeID := uuid.New()
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	rule := &domain.PriceRule{
		ID: uuid.New(), TicketTypeID: typeID, Priority: 1,
		EffectiveStart: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEnd:   end,
		Price:          decimal.NewFromInt(40),
	}

	mockTypes.On("GetByID", ctx, nil, typeID).Return(adultType(typeID), nil)
	mockRules.On("ListByTicketType", ctx, nil, typeID).Return([]*domain.PriceRule{rule}, nil)

	quote, err := resolver.Resolve(ctx, typeID, end, 1)

	require.NoError(t, err)
	assert.Nil(t, quote.AppliedRuleID)
}

func TestResolver_Resolve_InvalidQuantity(t *testing.T) {
	resolver, _, _ := newResolver(t)

	_, err := resolver.Resolve(context.Background(), uuid.New(), time.Now(), 0)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeValidationQuantityInvalid, domain.GetErrorCode(err))
}

func TestResolver_Resolve_UnknownTicketType(t *testing.T) {
	resolver, mockTypes, _ := newResolver(t)

	ctx := context.Background()
	typeID := uuid.New()
	mockTypes.On("GetByID", ctx, nil, typeID).
		Return((*domain.TicketType)(nil), domain.ErrTicketTypeNotFound)

	_, err := resolver.Resolve(ctx, typeID, time.Now(), 1)

	require.Error(t, err)
	assert.True(t, domain.IsNotFoundError(err))
}
