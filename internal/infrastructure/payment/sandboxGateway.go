package payment

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"credit-checkout/internal/domain"
)

type sandboxTxn struct {
	email       string
	amount      int64
	credits     int64
	callbackURL string
	paid        bool
}

// SandboxGateway is an in-memory gateway for local runs. Checkout URLs point
// back at this service under payPath; Complete marks a transaction paid.
type SandboxGateway struct {
	mu           sync.RWMutex
	transactions map[string]*sandboxTxn
	payURL       string
}

func NewSandboxGateway(siteURL, payPath string) *SandboxGateway {
	return &SandboxGateway{
		transactions: make(map[string]*sandboxTxn),
		payURL:       strings.TrimRight(siteURL, "/") + payPath,
	}
}

func (g *SandboxGateway) Initialize(ctx context.Context, secretKey string, req InitializeRequest) (*InitializeResult, error) {
	if secretKey == "" {
		return nil, &domain.GatewayError{Message: "Invalid key"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.transactions[req.Reference]; exists {
		return nil, &domain.GatewayError{Message: "Duplicate Transaction Reference"}
	}
	g.transactions[req.Reference] = &sandboxTxn{
		email:       req.Email,
		amount:      req.Amount,
		credits:     req.Credits,
		callbackURL: req.CallbackURL,
	}
	return &InitializeResult{
		AuthorizationURL: g.payURL + "/" + url.PathEscape(req.Reference),
		AccessCode:       "sandbox",
		Reference:        req.Reference,
	}, nil
}

func (g *SandboxGateway) Verify(ctx context.Context, secretKey, reference string) (*domain.VerifiedTransaction, error) {
	if secretKey == "" {
		return nil, &domain.GatewayError{Message: "Invalid key"}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	txn, ok := g.transactions[reference]
	if !ok {
		return nil, &domain.GatewayError{Message: "Transaction reference not found"}
	}

	status, response := "abandoned", "The transaction was not completed"
	if txn.paid {
		status, response = domain.TransactionSuccess, "Approved"
	}
	return &domain.VerifiedTransaction{
		Reference:       reference,
		Status:          status,
		GatewayResponse: response,
		Amount:          txn.amount,
		CustomerEmail:   txn.email,
		CustomFields: []domain.CustomField{{
			DisplayName:  "Credits",
			VariableName: domain.CreditsField,
			Value:        strconv.FormatInt(txn.credits, 10),
		}},
	}, nil
}

// Complete marks the transaction paid and returns the callback URL the
// purchaser should be sent back to.
func (g *SandboxGateway) Complete(reference string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	txn, ok := g.transactions[reference]
	if !ok {
		return "", false
	}
	txn.paid = true

	u, err := url.Parse(txn.callbackURL)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("trxref", reference)
	q.Set("reference", reference)
	u.RawQuery = q.Encode()
	return u.String(), true
}
