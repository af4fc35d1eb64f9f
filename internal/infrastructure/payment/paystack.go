package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"credit-checkout/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://api.paystack.co"

	maxResponseBytes = 1 << 20
)

type PaystackClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	log        *logrus.Entry
}

type PaystackOption func(*PaystackClient)

func WithHTTPClient(c *http.Client) PaystackOption {
	return func(p *PaystackClient) { p.httpClient = c }
}

func WithLogger(l *logrus.Logger) PaystackOption {
	return func(p *PaystackClient) { p.log = l.WithField("module", "paystack") }
}

// WithBreakerSettings replaces the default circuit breaker. IsSuccessful is
// always overridden so only transport failures trip it.
func WithBreakerSettings(s gobreaker.Settings) PaystackOption {
	return func(p *PaystackClient) {
		s.IsSuccessful = countsAsSuccess
		if s.OnStateChange == nil {
			s.OnStateChange = p.logStateChange
		}
		p.breaker = gobreaker.NewCircuitBreaker(s)
	}
}

// NewPaystackClient returns a client that retries a request once on a
// transport error. timeout bounds each attempt.
func NewPaystackClient(baseURL string, timeout time.Duration, opts ...PaystackOption) *PaystackClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &PaystackClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 1,
		log:        logrus.StandardLogger().WithField("module", "paystack"),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "paystack",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful:  countsAsSuccess,
		OnStateChange: c.logStateChange,
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PaystackClient) logStateChange(name string, from, to gobreaker.State) {
	c.log.WithFields(logrus.Fields{
		"breaker": name,
		"from":    from.String(),
		"to":      to.String(),
	}).Warn("circuit breaker state changed")
}

func countsAsSuccess(err error) bool {
	return err == nil || !errors.Is(err, domain.ErrGatewayUnavailable)
}

type initializePayload struct {
	Email       string          `json:"email"`
	Amount      int64           `json:"amount"`
	CallbackURL string          `json:"callback_url"`
	Reference   string          `json:"reference"`
	Metadata    metadataPayload `json:"metadata"`
}

type metadataPayload struct {
	CustomFields []customFieldPayload `json:"custom_fields"`
}

type customFieldPayload struct {
	DisplayName  string          `json:"display_name"`
	VariableName string          `json:"variable_name"`
	Value        json.RawMessage `json:"value"`
}

type envelope struct {
	Status  *bool           `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status          *string `json:"status"`
	Reference       string  `json:"reference"`
	Amount          *int64  `json:"amount"`
	GatewayResponse string  `json:"gateway_response"`
	Customer        *struct {
		Email string `json:"email"`
	} `json:"customer"`
	Metadata json.RawMessage `json:"metadata"`
}

func (c *PaystackClient) Initialize(ctx context.Context, secretKey string, req InitializeRequest) (*InitializeResult, error) {
	payload := initializePayload{
		Email:       req.Email,
		Amount:      req.Amount,
		CallbackURL: req.CallbackURL,
		Reference:   req.Reference,
		Metadata: metadataPayload{
			CustomFields: []customFieldPayload{{
				DisplayName:  "Credits",
				VariableName: domain.CreditsField,
				Value:        json.RawMessage(fmt.Sprintf("%d", req.Credits)),
			}},
		},
	}

	env, err := c.call(ctx, http.MethodPost, "/transaction/initialize", secretKey, payload)
	if err != nil {
		return nil, err
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: initialize data: %v", domain.ErrMalformedResponse, err)
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize response has no authorization_url", domain.ErrMalformedResponse)
	}
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        ref,
	}, nil
}

func (c *PaystackClient) Verify(ctx context.Context, secretKey, reference string) (*domain.VerifiedTransaction, error) {
	env, err := c.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), secretKey, nil)
	if err != nil {
		return nil, err
	}
	return parseVerifyData(env.Data, reference)
}

// parseVerifyData fails closed: a successful transaction must carry an amount
// and a customer email.
func parseVerifyData(raw json.RawMessage, reference string) (*domain.VerifiedTransaction, error) {
	var data verifyData
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: verify response has no data", domain.ErrMalformedResponse)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: verify data: %v", domain.ErrMalformedResponse, err)
	}
	if data.Status == nil {
		return nil, fmt.Errorf("%w: verify data has no status", domain.ErrMalformedResponse)
	}

	tx := &domain.VerifiedTransaction{
		Reference:       data.Reference,
		Status:          *data.Status,
		GatewayResponse: data.GatewayResponse,
		CustomFields:    parseCustomFields(data.Metadata),
	}
	if tx.Reference == "" {
		tx.Reference = reference
	}
	if data.Amount != nil {
		tx.Amount = *data.Amount
	}
	if data.Customer != nil {
		tx.CustomerEmail = strings.TrimSpace(data.Customer.Email)
	}

	if tx.Succeeded() {
		if data.Amount == nil {
			return nil, fmt.Errorf("%w: successful transaction has no amount", domain.ErrMalformedResponse)
		}
		if tx.CustomerEmail == "" {
			return nil, fmt.Errorf("%w: successful transaction has no customer email", domain.ErrMalformedResponse)
		}
	}
	return tx, nil
}

// parseCustomFields accepts metadata as an object or as a JSON encoded
// string. Anything else yields no fields.
func parseCustomFields(raw json.RawMessage) []domain.CustomField {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return nil
		}
		raw = json.RawMessage(s)
	}

	var meta metadataPayload
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	fields := make([]domain.CustomField, 0, len(meta.CustomFields))
	for _, f := range meta.CustomFields {
		fields = append(fields, domain.CustomField{
			DisplayName:  f.DisplayName,
			VariableName: f.VariableName,
			Value:        scalarString(f.Value),
		})
	}
	return fields
}

func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n', 't', 'f':
		return ""
	default:
		return string(raw)
	}
}

func (c *PaystackClient) call(ctx context.Context, method, path, secretKey string, body any) (*envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.sendWithRetry(ctx, method, path, secretKey, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	env := res.(*envelope)
	if !*env.Status {
		msg := env.Message
		if msg == "" {
			msg = "Unknown API Error"
		}
		return nil, &domain.GatewayError{Message: msg}
	}
	return env, nil
}

func (c *PaystackClient) sendWithRetry(ctx context.Context, method, path, secretKey string, payload []byte) (*envelope, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		env, err := c.send(ctx, method, path, secretKey, payload)
		if err == nil {
			return env, nil
		}
		lastErr = err
		var te *transportError
		if !errors.As(err, &te) || ctx.Err() != nil {
			return nil, err
		}
		c.log.WithFields(logrus.Fields{
			"operation": strings.TrimPrefix(path, "/"),
			"attempt":   attempt + 1,
		}).WithError(err).Warn("gateway transport error")
	}
	return nil, lastErr
}

// transportError marks failures that never produced an HTTP response.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "gateway transport: " + e.err.Error() }

func (e *transportError) Unwrap() []error { return []error{domain.ErrGatewayUnavailable, e.err} }

func (c *PaystackClient) send(ctx context.Context, method, path, secretKey string, payload []byte) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &transportError{err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Status == nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrMalformedResponse, resp.StatusCode)
	}
	return &env, nil
}
