package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"credit-checkout/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBolt(t *testing.T) Store {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pendingPurchase(ref string, createdAt time.Time) *domain.Purchase {
	return &domain.Purchase{
		ID:        uuid.New(),
		Reference: ref,
		Email:     "jane@example.com",
		ProductID: 1,
		Amount:    500,
		Credits:   500,
		Status:    domain.PurchasePending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestBoltCreditOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)
	require.NoError(t, s.CreatePending(ctx, pendingPurchase("REF-1", time.Now())))

	credit := domain.Credit{Reference: "REF-1", Email: "Jane@Example.com", Amount: 500, Credits: 500, GatewayStatus: "success"}
	require.NoError(t, s.CreditOnce(ctx, credit))

	err := s.CreditOnce(ctx, credit)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	balance, err := s.Balance(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	p, err := s.FindPurchase(ctx, "REF-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, domain.PurchaseSucceeded, p.Status)
	assert.Equal(t, 1, p.ProductID)
}

func TestBoltCreditWithoutPendingRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	require.NoError(t, s.CreditOnce(ctx, domain.Credit{Reference: "REF-X", Email: "a@b.c", Amount: 1000, Credits: 1200}))

	p, err := s.FindPurchase(ctx, "REF-X")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, domain.PurchaseSucceeded, p.Status)
	assert.Equal(t, int64(1200), p.Credits)
}

func TestBoltConcurrentCreditOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.CreditOnce(ctx, domain.Credit{Reference: "REF-RACE", Email: "race@example.com", Credits: 100})
		}()
	}
	wg.Wait()
	close(errs)

	var applied int
	for err := range errs {
		if err == nil {
			applied++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, applied)

	balance, err := s.Balance(ctx, "race@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestBoltMarkFailedOnlyTouchesPending(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)
	require.NoError(t, s.CreatePending(ctx, pendingPurchase("REF-F", time.Now())))
	require.NoError(t, s.CreditOnce(ctx, domain.Credit{Reference: "REF-S", Email: "a@b.c", Credits: 1}))

	require.NoError(t, s.MarkFailed(ctx, "REF-F", "abandoned"))
	require.NoError(t, s.MarkFailed(ctx, "REF-S", "failed"))
	require.NoError(t, s.MarkFailed(ctx, "REF-MISSING", "failed"))

	p, err := s.FindPurchase(ctx, "REF-F")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseFailed, p.Status)
	assert.Equal(t, "abandoned", p.GatewayStatus)

	p, err = s.FindPurchase(ctx, "REF-S")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseSucceeded, p.Status)
}

func TestBoltAbandonStale(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)
	now := time.Now().UTC()

	require.NoError(t, s.CreatePending(ctx, pendingPurchase("OLD", now.Add(-2*time.Hour))))
	require.NoError(t, s.CreatePending(ctx, pendingPurchase("NEW", now)))

	n, err := s.AbandonStale(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := s.FindPurchase(ctx, "OLD")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseAbandoned, old.Status)

	fresh, err := s.FindPurchase(ctx, "NEW")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchasePending, fresh.Status)

	// An abandoned purchase can still be credited when the payment shows up.
	require.NoError(t, s.CreditOnce(ctx, domain.Credit{Reference: "OLD", Email: "jane@example.com", Credits: 500}))
}

func TestBoltFindMissing(t *testing.T) {
	s := newTestBolt(t)
	p, err := s.FindPurchase(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestBoltCreatePendingKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)
	first := pendingPurchase("DUP", time.Now())
	require.NoError(t, s.CreatePending(ctx, first))

	second := pendingPurchase("DUP", time.Now())
	second.Amount = 1
	require.NoError(t, s.CreatePending(ctx, second))

	p, err := s.FindPurchase(ctx, "DUP")
	require.NoError(t, err)
	assert.Equal(t, int64(500), p.Amount)
}

func TestBoltHealthAndLogs(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)
	require.NoError(t, s.AppendLog(ctx, domain.LogEntry{ID: uuid.New(), Level: "info", Message: "hello", CreatedAt: time.Now()}))

	stats := s.Health(ctx)
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "bolt", stats["driver"])
}
