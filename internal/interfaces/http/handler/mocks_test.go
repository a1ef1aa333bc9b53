package handler

import (
	"context"

	appcollection "github.com/debtdesk/backend/internal/application/collection"
	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockCustomerService struct {
	mock.Mock
}

func (m *mockCustomerService) CreateCustomer(ctx context.Context, req appcollection.CreateCustomerRequest) (*appcollection.CustomerResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.CustomerResponse), args.Error(1)
}

func (m *mockCustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*appcollection.CustomerWithStatsResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.CustomerWithStatsResponse), args.Error(1)
}

func (m *mockCustomerService) ListCustomersWithStats(ctx context.Context, f appcollection.CustomerStatsFilter) (*appcollection.CustomerListResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.CustomerListResult), args.Error(1)
}

type mockDebtService struct {
	mock.Mock
}

func (m *mockDebtService) CreateDebt(ctx context.Context, req appcollection.CreateDebtRequest) (*appcollection.DebtResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.DebtResponse), args.Error(1)
}

func (m *mockDebtService) GetDebt(ctx context.Context, id uuid.UUID) (*appcollection.DebtResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.DebtResponse), args.Error(1)
}

func (m *mockDebtService) GetInstallment(ctx context.Context, id uuid.UUID) (*appcollection.InstallmentResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.InstallmentResponse), args.Error(1)
}

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) CreatePayment(ctx context.Context, req appcollection.CreatePaymentRequest) (*appcollection.PaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.PaymentResponse), args.Error(1)
}

func (m *mockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*appcollection.PaymentResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.PaymentResponse), args.Error(1)
}

func (m *mockPaymentService) ListPaymentAllocations(ctx context.Context, id uuid.UUID) ([]appcollection.AllocationResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appcollection.AllocationResponse), args.Error(1)
}

func (m *mockPaymentService) Allocate(ctx context.Context, id uuid.UUID, lines []collection.AllocationLine) (*appcollection.PaymentResponse, error) {
	args := m.Called(ctx, id, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.PaymentResponse), args.Error(1)
}

func (m *mockPaymentService) AutoAllocate(ctx context.Context, id uuid.UUID) (*appcollection.PaymentResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.PaymentResponse), args.Error(1)
}

func (m *mockPaymentService) Reverse(ctx context.Context, id uuid.UUID) (*appcollection.PaymentResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcollection.PaymentResponse), args.Error(1)
}

var (
	_ CustomerService = (*mockCustomerService)(nil)
	_ DebtService     = (*mockDebtService)(nil)
	_ PaymentService  = (*mockPaymentService)(nil)
)
