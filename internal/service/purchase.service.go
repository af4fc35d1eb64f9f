package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"credit-checkout/internal/domain"
	"credit-checkout/internal/infrastructure/payment"
	"credit-checkout/internal/ledger"
	"credit-checkout/internal/oplog"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// sharedVerifyTimeout bounds one collapsed verification, gateway retry included.
const sharedVerifyTimeout = 30 * time.Second

// SecretSource supplies the gateway credential at request time.
type SecretSource interface {
	GatewaySecret() string
}

type PurchaseService interface {
	ListProducts() []domain.Product
	Initiate(ctx context.Context, in InitiateInput) (*Checkout, error)
	Verify(ctx context.Context, reference string) (*Receipt, error)
	Balance(ctx context.Context, email string) (int64, error)
}

type InitiateInput struct {
	Email       string
	ProductID   int
	CallbackURL string
}

type Checkout struct {
	Reference        string
	AuthorizationURL string
	Product          domain.Product
}

type Receipt struct {
	Reference    string
	Email        string
	Credits      int64
	FromMetadata bool
}

type purchaseService struct {
	catalog         *domain.Catalog
	store           ledger.Store
	gateway         payment.Gateway
	secrets         SecretSource
	ops             *oplog.Logger
	referencePrefix string
	verifications   singleflight.Group
}

func NewPurchaseService(
	catalog *domain.Catalog,
	store ledger.Store,
	gateway payment.Gateway,
	secrets SecretSource,
	ops *oplog.Logger,
	referencePrefix string,
) PurchaseService {
	if referencePrefix == "" {
		referencePrefix = domain.DefaultReferencePrefix
	}
	return &purchaseService{
		catalog:         catalog,
		store:           store,
		gateway:         gateway,
		secrets:         secrets,
		ops:             ops,
		referencePrefix: referencePrefix,
	}
}

func (s *purchaseService) ListProducts() []domain.Product {
	return s.catalog.All()
}

func (s *purchaseService) Initiate(ctx context.Context, in InitiateInput) (*Checkout, error) {
	product, ok := s.catalog.Find(in.ProductID)
	if !ok {
		return nil, domain.ErrUnknownProduct
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, domain.ErrMissingEmail
	}
	secret := s.secrets.GatewaySecret()
	if secret == "" {
		s.ops.Error(ctx, "PAYSTACK_SECRET_KEY not configured", nil, true)
		return nil, domain.ErrGatewayNotConfigured
	}

	reference := domain.NewReference(s.referencePrefix, email, product.ID)
	amount := product.SubunitAmount()
	log := s.ops.Entry().WithFields(logrus.Fields{
		"operation": "initiate",
		"reference": reference,
		"product":   product.ID,
	})

	res, err := s.gateway.Initialize(ctx, secret, payment.InitializeRequest{
		Email:       email,
		Amount:      amount,
		CallbackURL: in.CallbackURL,
		Reference:   reference,
		Credits:     product.Credits,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			s.ops.Error(ctx, "Paystack API initialization error", err, true)
		} else {
			log.WithError(err).Warn("gateway rejected initialization")
		}
		return nil, err
	}

	now := time.Now().UTC()
	pending := &domain.Purchase{
		ID:        uuid.New(),
		Reference: reference,
		Email:     email,
		ProductID: product.ID,
		Amount:    amount,
		Credits:   product.Credits,
		Status:    domain.PurchasePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The callback metadata stays authoritative; a lost pending record only
	// disables the amount check for this reference.
	if err := s.store.CreatePending(ctx, pending); err != nil {
		log.WithError(err).Error("pending purchase not recorded")
	}

	log.WithField("outcome", "redirect").Info("checkout initialized")
	return &Checkout{
		Reference:        reference,
		AuthorizationURL: res.AuthorizationURL,
		Product:          product,
	}, nil
}

// Verify asks the gateway for the outcome of reference and credits the
// purchaser at most once. Concurrent calls for the same reference share one
// gateway round trip and one result.
func (s *purchaseService) Verify(ctx context.Context, reference string) (*Receipt, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.ErrMissingReference
	}
	secret := s.secrets.GatewaySecret()
	if secret == "" {
		s.ops.Error(ctx, "PAYSTACK_SECRET_KEY not configured", nil, true)
		return nil, domain.ErrGatewayNotConfigured
	}

	// The shared call must outlive any single caller: a purchaser reloading
	// the callback page cancels the first request but not the others.
	ch := s.verifications.DoChan(reference, func() (interface{}, error) {
		vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedVerifyTimeout)
		defer cancel()
		return s.verify(vctx, secret, reference)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Receipt), nil
	}
}

func (s *purchaseService) verify(ctx context.Context, secret, reference string) (*Receipt, error) {
	log := s.ops.Entry().WithFields(logrus.Fields{
		"operation": "verify",
		"reference": reference,
	})

	txn, err := s.gateway.Verify(ctx, secret, reference)
	if err != nil {
		var gwErr *domain.GatewayError
		switch {
		case errors.As(err, &gwErr):
			log.WithError(err).Warn("gateway reported failure")
			return nil, &domain.PaymentFailedError{Reference: reference, Status: gwErr.Message}
		case errors.Is(err, domain.ErrGatewayUnavailable):
			s.ops.Error(ctx, "Paystack verification API error", err, true)
		default:
			s.ops.Error(ctx, "Verification processing error", err, true)
		}
		return nil, err
	}

	if !txn.Succeeded() {
		if err := s.store.MarkFailed(ctx, reference, txn.Status); err != nil {
			log.WithError(err).Error("failed purchase not recorded")
		}
		log.WithField("outcome", txn.Status).Info("payment not successful")
		return nil, &domain.PaymentFailedError{Reference: reference, Status: txn.StatusMessage()}
	}

	credits, fromMetadata, err := domain.ResolveCredits(*txn)
	if err != nil {
		s.ops.Error(ctx, "Verification processing error", err, true)
		return nil, err
	}
	if !fromMetadata {
		log.WithFields(logrus.Fields{
			"amount":  txn.Amount,
			"credits": credits,
		}).Warn("credits missing from metadata, using amount fallback")
	}

	pending, err := s.store.FindPurchase(ctx, reference)
	if err != nil {
		s.ops.Error(ctx, "Verification processing error", err, true)
		return nil, err
	}
	if pending != nil {
		if pending.Status == domain.PurchaseSucceeded {
			log.WithField("outcome", "duplicate").Info("payment already applied")
			return nil, domain.ErrAlreadyProcessed
		}
		// Abandoned or failed records still carry the expected amount.
		if txn.Amount < pending.Amount {
			err := fmt.Errorf("%w: paid %d, expected %d", domain.ErrAmountMismatch, txn.Amount, pending.Amount)
			s.ops.Error(ctx, "Verification processing error", err, true)
			return nil, err
		}
	}

	err = s.store.CreditOnce(ctx, domain.Credit{
		Reference:     reference,
		Email:         txn.CustomerEmail,
		Amount:        txn.Amount,
		Credits:       credits,
		GatewayStatus: txn.Status,
	})
	if errors.Is(err, domain.ErrAlreadyProcessed) {
		log.WithField("outcome", "duplicate").Info("payment already applied")
		return nil, err
	}
	if err != nil {
		s.ops.Error(ctx, "Verification processing error", err, true)
		return nil, err
	}

	s.ops.Record(ctx, fmt.Sprintf("PAYMENT: User: %s bought %d credits (Ref: %s)", txn.CustomerEmail, credits, reference), true)
	return &Receipt{
		Reference:    reference,
		Email:        txn.CustomerEmail,
		Credits:      credits,
		FromMetadata: fromMetadata,
	}, nil
}

func (s *purchaseService) Balance(ctx context.Context, email string) (int64, error) {
	return s.store.Balance(ctx, email)
}
