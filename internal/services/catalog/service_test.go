package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parkgate/ticketing-service/internal/domain"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
	"github.com/parkgate/ticketing-service/internal/services/catalog"
)

// MockDBPort mocks the database port; WithTransaction runs the callback with a nil tx
type MockDBPort struct {
	mock.Mock
}

func (m *MockDBPort) GetDB() *pgxpool.Pool { return nil }

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx, nil)
}

func (m *MockDBPort) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx, nil)
}

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

// MockLogger mocks the logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, fields ...ports.Field)  {}
func (m *MockLogger) Error(msg string, fields ...ports.Field) {}
func (m *MockLogger) Warn(msg string, fields ...ports.Field)  {}
func (m *MockLogger) Debug(msg string, fields ...ports.Field) {}

func TestService_ListTicketTypes(t *testing.T) {
	mockDB := new(MockDBPort)
	mockTypes := new(MockTicketTypeRepository)
	service := catalog.NewService(mockDB, mockTypes, new(MockLogger))

	ctx := context.Background()
	types := []*domain.TicketType{
		{ID: uuid.New(), Name: "Adult", BasePrice: decimal.NewFromInt(50)},
		{ID: uuid.New(), Name: "Child", BasePrice: decimal.NewFromInt(25)},
	}
	mockTypes.On("List", ctx, nil).Return(types, nil)

	got, err := service.ListTicketTypes(ctx)

	require.NoError(t, err)
	assert.Equal(t, types, got)
}

func TestService_CorrectBasePrice(t *testing.T) {
	mockDB := new(MockDBPort)
	mockTypes := new(MockTicketTypeRepository)
	service := catalog.NewService(mockDB, mockTypes, new(MockLogger))

	ctx := context.Background()
	typeID := uuid.New()
	adminID := uuid.New()
	newPrice := decimal.NewFromInt(55)

	mockTypes.On("GetByID", ctx, nil, typeID).
		Return(&domain.TicketType{ID: typeID, Name: "Adult", BasePrice: decimal.NewFromInt(50)}, nil)
	mockDB.On("WithTransaction", ctx, mock.Anything).Return(nil)
	mockTypes.On("UpdateBasePrice", ctx, nil, typeID, newPrice, adminID).Return(nil)

	err := service.CorrectBasePrice(ctx, typeID, newPrice, adminID)

	require.NoError(t, err)
	mockTypes.AssertExpectations(t)
}

func TestService_CorrectBasePrice_RejectsNonPositive(t *testing.T) {
	mockDB := new(MockDBPort)
	mockTypes := new(MockTicketTypeRepository)
	service := catalog.NewService(mockDB, mockTypes, new(MockLogger))

	for _, price := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		err := service.CorrectBasePrice(context.Background(), uuid.New(), price, uuid.New())
		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
	}
	mockTypes.AssertNotCalled(t, "UpdateBasePrice",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CorrectBasePrice_UnknownTypePropagates(t *testing.T) {
	mockDB := new(MockDBPort)
	mockTypes := new(MockTicketTypeRepository)
	service := catalog.NewService(mockDB, mockTypes, new(MockLogger))

	ctx := context.Background()
	typeID := uuid.New()
	mockTypes.On("GetByID", ctx, nil, typeID).Return(nil, domain.ErrTicketTypeNotFound)

	err := service.CorrectBasePrice(ctx, typeID, decimal.NewFromInt(55), uuid.New())

	require.Error(t, err)
	assert.True(t, domain.IsNotFoundError(err))
}
