package ledger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"credit-checkout/internal/domain"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"
)

var (
	purchasesBucket = []byte("purchases")
	accountsBucket  = []byte("accounts")
	logsBucket      = []byte("operation_logs")
)

type account struct {
	Email     string    `json:"email"`
	Credits   int64     `json:"credits"`
	UpdatedAt time.Time `json:"updated_at"`
}

// boltStore keeps the ledger in a single embedded file. Unlike the Postgres
// store it owns its accounts: crediting an unknown email opens an account.
type boltStore struct {
	db   *bolt.DB
	path string
	now  func() time.Time
}

func OpenBolt(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{purchasesBucket, accountsBucket, logsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &boltStore{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}, nil
}

func accountKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}

func (s *boltStore) CreatePending(ctx context.Context, p *domain.Purchase) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(purchasesBucket)
		if b.Get([]byte(p.Reference)) != nil {
			return nil
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put([]byte(p.Reference), data)
	})
}

func (s *boltStore) FindPurchase(ctx context.Context, reference string) (*domain.Purchase, error) {
	var found *domain.Purchase
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(purchasesBucket).Get([]byte(reference))
		if v == nil {
			return nil
		}
		var p domain.Purchase
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		found = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *boltStore) CreditOnce(ctx context.Context, c domain.Credit) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		purchases := tx.Bucket(purchasesBucket)
		now := s.now()

		p := domain.Purchase{
			ID:        uuid.New(),
			Reference: c.Reference,
			CreatedAt: now,
		}
		if existing := purchases.Get([]byte(c.Reference)); existing != nil {
			if err := json.Unmarshal(existing, &p); err != nil {
				return err
			}
			if p.Status == domain.PurchaseSucceeded {
				return domain.ErrAlreadyProcessed
			}
		}
		p.Email = c.Email
		p.Amount = c.Amount
		p.Credits = c.Credits
		p.Status = domain.PurchaseSucceeded
		p.GatewayStatus = c.GatewayStatus
		p.UpdatedAt = now

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err := purchases.Put([]byte(c.Reference), data); err != nil {
			return err
		}

		accounts := tx.Bucket(accountsBucket)
		key := accountKey(c.Email)
		acct := account{Email: c.Email}
		if raw := accounts.Get(key); raw != nil {
			if err := json.Unmarshal(raw, &acct); err != nil {
				return err
			}
		}
		acct.Credits += c.Credits
		acct.UpdatedAt = now
		raw, err := json.Marshal(acct)
		if err != nil {
			return err
		}
		return accounts.Put(key, raw)
	})
}

func (s *boltStore) MarkFailed(ctx context.Context, reference, gatewayStatus string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(purchasesBucket)
		v := b.Get([]byte(reference))
		if v == nil {
			return nil
		}
		var p domain.Purchase
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		if p.Status != domain.PurchasePending {
			return nil
		}
		p.Status = domain.PurchaseFailed
		p.GatewayStatus = gatewayStatus
		p.UpdatedAt = s.now()
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put([]byte(reference), data)
	})
}

func (s *boltStore) AbandonStale(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(purchasesBucket)
		updates := make(map[string][]byte)
		err := b.ForEach(func(k, v []byte) error {
			var p domain.Purchase
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			if p.Status != domain.PurchasePending || !p.CreatedAt.Before(before) {
				return nil
			}
			p.Status = domain.PurchaseAbandoned
			p.UpdatedAt = s.now()
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			updates[string(k)] = data
			return nil
		})
		if err != nil {
			return err
		}
		// Bolt forbids modifying a bucket while iterating it.
		for k, v := range updates {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		n = int64(len(updates))
		return nil
	})
	return n, err
}

func (s *boltStore) Balance(ctx context.Context, email string) (int64, error) {
	var credits int64
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(accountsBucket).Get(accountKey(email))
		if raw == nil {
			return nil
		}
		var acct account
		if err := json.Unmarshal(raw, &acct); err != nil {
			return err
		}
		credits = acct.Credits
		return nil
	})
	return credits, err
}

func (s *boltStore) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(logsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *boltStore) Health(ctx context.Context) map[string]string {
	stats := map[string]string{
		"status": "up",
		"driver": "bolt",
		"path":   s.path,
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		stats["purchases"] = strconv.Itoa(tx.Bucket(purchasesBucket).Stats().KeyN)
		stats["accounts"] = strconv.Itoa(tx.Bucket(accountsBucket).Stats().KeyN)
		return nil
	})
	if err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
	}
	dbStats := s.db.Stats()
	stats["open_read_tx"] = strconv.Itoa(dbStats.OpenTxN)
	stats["tx_total"] = strconv.Itoa(dbStats.TxN)
	return stats
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
