package gateway

import (
	"context"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов и локальной разработки.
type MockGateway struct {
	GatewayName  string
	Session      domain.PaymentSession
	CreateErr    error
	Verification domain.VerificationResult
	VerifyErr    error

	CreateCalls int
	VerifyCalls int
	LastRequest domain.PaymentRequest
	LastRef     string
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		GatewayName: "mock",
		Session: domain.PaymentSession{
			PaymentURL:           "https://pay.example.com/session/mock",
			TransactionReference: "MOCK0000000001",
		},
		Verification: domain.VerificationResult{
			Success:       true,
			Status:        domain.PaymentStatusPaid,
			Currency:      defaultCurrency,
			TransactionID: "MOCK0000000001",
		},
	}
}

func (m *MockGateway) Name() string { return m.GatewayName }

// CreatePayment возвращает заранее настроенную сессию и считает вызовы.
func (m *MockGateway) CreatePayment(_ context.Context, req domain.PaymentRequest) (domain.PaymentSession, error) {
	m.CreateCalls++
	m.LastRequest = req
	if m.CreateErr != nil {
		return domain.PaymentSession{}, m.CreateErr
	}
	return m.Session, nil
}

// VerifyPayment возвращает настроенный результат и считает вызовы.
func (m *MockGateway) VerifyPayment(_ context.Context, ref string) (domain.VerificationResult, error) {
	m.VerifyCalls++
	m.LastRef = ref
	if m.VerifyErr != nil {
		return domain.VerificationResult{}, m.VerifyErr
	}
	return m.Verification, nil
}

// GetPaymentStatus — проекция VerifyPayment на поле статуса.
func (m *MockGateway) GetPaymentStatus(ctx context.Context, ref string) (domain.PaymentStatus, error) {
	verification, err := m.VerifyPayment(ctx, ref)
	if err != nil {
		return "", err
	}
	return verification.Status, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
