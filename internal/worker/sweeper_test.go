package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"credit-checkout/internal/domain"
	"credit-checkout/internal/ledger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPending(t *testing.T, store ledger.Store, ref string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, store.CreatePending(context.Background(), &domain.Purchase{
		ID:        uuid.New(),
		Reference: ref,
		Email:     "sweep@example.com",
		ProductID: 1,
		Amount:    500,
		Credits:   500,
		Status:    domain.PurchasePending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}))
}

func newStore(t *testing.T) ledger.Store {
	t.Helper()
	store, err := ledger.OpenBolt(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSweeperAbandonsOnlyStale(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedPending(t, store, "OLD", now.Add(-2*time.Hour))
	seedPending(t, store, "FRESH", now.Add(-10*time.Minute))

	base, _ := test.NewNullLogger()
	w := NewPendingSweeper(store, time.Hour, time.Minute, base)
	w.now = func() time.Time { return now }

	n, err := w.process(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := store.FindPurchase(ctx, "OLD")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseAbandoned, old.Status)

	fresh, err := store.FindPurchase(ctx, "FRESH")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchasePending, fresh.Status)

	n, err = w.process(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := newStore(t)
	seedPending(t, store, "OLD", time.Now().Add(-time.Hour))

	base, hook := test.NewNullLogger()
	w := NewPendingSweeper(store, time.Minute, 10*time.Millisecond, base)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		p, err := store.FindPurchase(context.Background(), "OLD")
		return err == nil && p != nil && p.Status == domain.PurchaseAbandoned
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.Equal(t, "pending sweeper stopped", hook.LastEntry().Message)
}
