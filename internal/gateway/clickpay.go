package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

const (
	// ClickPayDefaultBaseURL — боевой endpoint египетского контура ClickPay.
	ClickPayDefaultBaseURL = "https://secure-egypt.clickpay.com.sa"

	clickpayRequestPath = "/payment/request"
	clickpayQueryPath   = "/payment/query"

	// clickpayTimeout ограничивает каждый HTTP-запрос к шлюзу.
	clickpayTimeout = 30 * time.Second

	defaultCurrency = "EGP"
)

// ClickPayConfig — учётные данные мерчанта и URL-ы возврата.
type ClickPayConfig struct {
	ProfileID   int
	ServerKey   string
	BaseURL     string
	CallbackURL string
	ReturnURL   string
}

// ClickPayClient — HTTP-клиент hosted-paypage протокола ClickPay.
type ClickPayClient struct {
	cfg    ClickPayConfig
	client *http.Client
	logger *log.Entry
}

// NewClickPayClient создаёт клиент шлюза. Пустой BaseURL заменяется боевым.
func NewClickPayClient(cfg ClickPayConfig) *ClickPayClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ClickPayDefaultBaseURL
	}
	return &ClickPayClient{
		cfg:    cfg,
		client: &http.Client{Timeout: clickpayTimeout},
		logger: log.WithField("component", "clickpay-gateway"),
	}
}

// Name возвращает имя провайдера для записи в заказ и выбора в реестре.
func (c *ClickPayClient) Name() string { return "clickpay" }

type clickpayUserDefined struct {
	UDF3 string `json:"udf3"`
	UDF9 string `json:"udf9"`
}

type clickpayCreateRequest struct {
	ProfileID       int                   `json:"profile_id"`
	TranType        string                `json:"tran_type"`
	TranClass       string                `json:"tran_class"`
	CartID          string                `json:"cart_id"`
	CartAmount      float64               `json:"cart_amount"`
	CartCurrency    string                `json:"cart_currency"`
	CartDescription string                `json:"cart_description"`
	PaypageLang     string                `json:"paypage_lang"`
	CustomerDetails domain.ContactDetails `json:"customer_details"`
	ShippingDetails domain.ContactDetails `json:"shipping_details"`
	Callback        string                `json:"callback"`
	Return          string                `json:"return"`
	UserDefined     clickpayUserDefined   `json:"user_defined"`
}

type clickpayCreateResponse struct {
	RedirectURL string `json:"redirect_url"`
	PaymentURL  string `json:"payment_url"`
	TranRef     string `json:"tran_ref"`
	Message     string `json:"message"`
}

type clickpayQueryRequest struct {
	ProfileID int    `json:"profile_id"`
	TranRef   string `json:"tran_ref"`
}

type clickpayQueryResponse struct {
	TranRef        string      `json:"tran_ref"`
	CartAmount     json.Number `json:"cart_amount"`
	CartCurrency   string      `json:"cart_currency"`
	ResponseStatus string      `json:"response_status"`
	Status         string      `json:"status"`
	Message        string      `json:"message"`
	PaymentResult  struct {
		ResponseStatus string `json:"response_status"`
	} `json:"payment_result"`
}

// CreatePayment открывает платёжную сессию hosted paypage.
// Сумма передаётся в основных единицах валюты: шлюз не принимает минорные.
func (c *ClickPayClient) CreatePayment(ctx context.Context, req domain.PaymentRequest) (domain.PaymentSession, error) {
	if c.cfg.ProfileID == 0 || c.cfg.ServerKey == "" {
		return domain.PaymentSession{}, fmt.Errorf("clickpay profile_id/server_key are not set: %w", domain.ErrGatewayNotConfigured)
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	description := req.Description
	if description == "" {
		description = "Order Payment"
	}

	payload := clickpayCreateRequest{
		ProfileID:       c.cfg.ProfileID,
		TranType:        "sale",
		TranClass:       "ecom",
		CartID:          req.OrderNumber,
		CartAmount:      float64(req.AmountMinor) / 100,
		CartCurrency:    currency,
		CartDescription: description,
		PaypageLang:     "en",
		CustomerDetails: withContactDefaults(req.Customer),
		ShippingDetails: shippingDetails(req),
		Callback:        c.cfg.CallbackURL,
		Return:          c.cfg.ReturnURL,
		UserDefined: clickpayUserDefined{
			UDF3: req.OrderNumber,
			UDF9: "ecom",
		},
	}

	c.logger.WithFields(log.Fields{
		"cart_id":       payload.CartID,
		"cart_amount":   payload.CartAmount,
		"cart_currency": payload.CartCurrency,
	}).Info("creating clickpay payment session")

	status, body, err := c.post(ctx, clickpayRequestPath, payload)
	if err != nil {
		return domain.PaymentSession{}, err
	}

	var resp clickpayCreateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PaymentSession{}, fmt.Errorf("decode clickpay response: %w", err)
	}

	if status < 200 || status >= 300 {
		return domain.PaymentSession{}, fmt.Errorf("clickpay rejected payment (%d): %s: %w", status, rejectMessage(resp.Message), domain.ErrGatewayRejected)
	}

	paymentURL := resp.RedirectURL
	if paymentURL == "" {
		paymentURL = resp.PaymentURL
	}
	if paymentURL == "" {
		return domain.PaymentSession{}, fmt.Errorf("clickpay returned no payment URL: %s: %w", rejectMessage(resp.Message), domain.ErrGatewayRejected)
	}

	return domain.PaymentSession{
		PaymentURL:           paymentURL,
		TransactionReference: resp.TranRef,
		RawResponse:          json.RawMessage(body),
	}, nil
}

// VerifyPayment запрашивает статус платежа и маппит код провайдера в канонический.
func (c *ClickPayClient) VerifyPayment(ctx context.Context, ref string) (domain.VerificationResult, error) {
	if c.cfg.ProfileID == 0 || c.cfg.ServerKey == "" {
		return domain.VerificationResult{}, fmt.Errorf("clickpay profile_id/server_key are not set: %w", domain.ErrGatewayNotConfigured)
	}

	status, body, err := c.post(ctx, clickpayQueryPath, clickpayQueryRequest{
		ProfileID: c.cfg.ProfileID,
		TranRef:   ref,
	})
	if err != nil {
		return domain.VerificationResult{}, err
	}

	var resp clickpayQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.VerificationResult{}, fmt.Errorf("decode clickpay query response: %w", err)
	}

	if status < 200 || status >= 300 {
		return domain.VerificationResult{}, fmt.Errorf("clickpay verification failed (%d): %s: %w", status, rejectMessage(resp.Message), domain.ErrGatewayVerification)
	}

	// Код статуса живёт в разных местах ответа в зависимости от версии API.
	code := resp.PaymentResult.ResponseStatus
	if code == "" {
		code = resp.ResponseStatus
	}
	if code == "" {
		code = resp.Status
	}
	if code == "" {
		code = "F"
	}

	amount, _ := resp.CartAmount.Float64()
	currency := resp.CartCurrency
	if currency == "" {
		currency = defaultCurrency
	}
	tranRef := resp.TranRef
	if tranRef == "" {
		tranRef = ref
	}

	return domain.VerificationResult{
		Success:       true,
		Status:        domain.MapProviderStatus(code),
		Amount:        amount,
		Currency:      currency,
		TransactionID: tranRef,
		RawResponse:   json.RawMessage(body),
	}, nil
}

// GetPaymentStatus — проекция VerifyPayment на поле статуса.
func (c *ClickPayClient) GetPaymentStatus(ctx context.Context, ref string) (domain.PaymentStatus, error) {
	verification, err := c.VerifyPayment(ctx, ref)
	if err != nil {
		return "", err
	}
	return verification.Status, nil
}

func (c *ClickPayClient) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal clickpay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build clickpay request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.ServerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("clickpay request failed")
		return 0, nil, fmt.Errorf("clickpay request to %s: %v: %w", path, err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read clickpay response: %v: %w", err, domain.ErrGatewayUnavailable)
	}

	return resp.StatusCode, raw, nil
}

func rejectMessage(msg string) string {
	if msg == "" {
		return "no message"
	}
	return msg
}

// withContactDefaults подставляет статические значения вместо пустых полей:
// платёжная страница шлюза требует полный набор контактных данных.
func withContactDefaults(c domain.ContactDetails) domain.ContactDetails {
	if c.Name == "" {
		c.Name = "Customer"
	}
	if c.Email == "" {
		c.Email = "customer@example.com"
	}
	if c.Phone == "" {
		c.Phone = "01000000000"
	}
	if c.Address == "" {
		c.Address = "Cairo, Egypt"
	}
	if c.City == "" {
		c.City = "cairo"
	}
	if c.State == "" {
		c.State = "cairo"
	}
	if c.Country == "" {
		c.Country = "EG"
	}
	if c.Zip == "" {
		c.Zip = "12345"
	}
	return c
}

// mergeContacts заполняет пустые поля primary значениями из fallback.
func mergeContacts(primary, fallback domain.ContactDetails) domain.ContactDetails {
	if primary.Name == "" {
		primary.Name = fallback.Name
	}
	if primary.Email == "" {
		primary.Email = fallback.Email
	}
	if primary.Phone == "" {
		primary.Phone = fallback.Phone
	}
	if primary.Address == "" {
		primary.Address = fallback.Address
	}
	if primary.City == "" {
		primary.City = fallback.City
	}
	if primary.State == "" {
		primary.State = fallback.State
	}
	if primary.Country == "" {
		primary.Country = fallback.Country
	}
	if primary.Zip == "" {
		primary.Zip = fallback.Zip
	}
	return primary
}

// shippingDetails: каждое поле адреса доставки, при пустом — то же поле
// платёжного адреса, и только потом статическое значение.
func shippingDetails(req domain.PaymentRequest) domain.ContactDetails {
	return withContactDefaults(mergeContacts(req.Shipping, req.Customer))
}

var _ domain.PaymentGateway = (*ClickPayClient)(nil)
