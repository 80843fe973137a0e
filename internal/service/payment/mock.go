package payment

import (
	"context"

	"github.com/verdantis/fulfillment/internal/domain"
)

// MockService — конфигурируемая заглушка PaymentService для тестов и
// локальной разработки.
type MockService struct {
	VerifyStatus domain.PaymentStatus
	VerifyErr    error
	RefundStatus domain.PaymentStatus
	RefundErr    error

	VerifyCalls int
	RefundCalls int
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		VerifyStatus: domain.PaymentStatusPaid,
		RefundStatus: domain.PaymentStatusRefunded,
	}
}

// Verify возвращает заранее настроенный статус оплаты и считает вызовы.
func (m *MockService) Verify(_ context.Context, orderID string) (domain.PaymentStatus, error) {
	m.VerifyCalls++
	return m.VerifyStatus, m.VerifyErr
}

// Refund возвращает настроенный результат и считает вызовы.
func (m *MockService) Refund(_ context.Context, orderID string, amountMinor int64) (domain.PaymentStatus, error) {
	m.RefundCalls++
	return m.RefundStatus, m.RefundErr
}

var _ domain.PaymentService = (*MockService)(nil)
