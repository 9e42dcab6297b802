package domain

import (
	"encoding/json"
	"strings"
)

// PaymentStatus — канонический статус платежа после маппинга кодов провайдера.
type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// MapProviderStatus переводит код статуса провайдера в канонический статус.
// Таблица фиксированная; любой неизвестный код трактуется как failed,
// чтобы reconciler никогда не падал на новых кодах шлюза.
func MapProviderStatus(code string) PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "A", "APPROVED", "SUCCESS":
		return PaymentStatusPaid
	case "H", "HELD", "PENDING", "P", "PROCESSING":
		return PaymentStatusPending
	case "V", "VOID":
		return PaymentStatusCancelled
	default:
		return PaymentStatusFailed
	}
}

// ContactDetails — контактные данные покупателя для платёжной страницы шлюза.
type ContactDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
}

// PaymentRequest — запрос на открытие платёжной сессии.
type PaymentRequest struct {
	// OrderNumber используется как merchant-уникальный cart_id на стороне шлюза.
	OrderNumber string
	AmountMinor int64
	Currency    string
	Description string
	Customer    ContactDetails
	Shipping    ContactDetails
}

// PaymentSession — эфемерный результат открытия платёжной сессии у шлюза.
type PaymentSession struct {
	PaymentURL string
	// TransactionReference — tran_ref шлюза, ключ корреляции заказа и платежа.
	TransactionReference string
	RawResponse          json.RawMessage
}

// VerificationResult — результат verify-запроса к шлюзу.
type VerificationResult struct {
	Success       bool
	Status        PaymentStatus
	Amount        float64
	Currency      string
	TransactionID string
	RawResponse   json.RawMessage
}
