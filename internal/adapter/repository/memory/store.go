// Package memory is a process-local storage driver. It offers the same
// guarantees the ledger needs from PostgreSQL: row locks with a bounded wait,
// read-your-writes inside a unit of work and atomic commits.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// DefaultLockTimeout bounds how long a unit of work waits for a row lock.
const DefaultLockTimeout = 5 * time.Second

var errTxClosed = errors.New("memory: transaction already closed")

// Store holds the committed state.
type Store struct {
	mu           sync.RWMutex
	cards        map[string]*domain.Card
	cardNumbers  map[string]string
	transactions map[string]*domain.Transaction
	byCard       map[string][]*domain.Transaction
	txnOrder     []*domain.Transaction
	references   map[string]struct{}
	summaries    map[string]*domain.AccountSummary
	events       []*domain.OutboxEvent

	locks       *lockTable
	lockTimeout time.Duration
}

// NewStore creates an empty Store. A non-positive lockTimeout selects
// DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &Store{
		cards:        make(map[string]*domain.Card),
		cardNumbers:  make(map[string]string),
		transactions: make(map[string]*domain.Transaction),
		byCard:       make(map[string][]*domain.Transaction),
		references:   make(map[string]struct{}),
		summaries:    make(map[string]*domain.AccountSummary),
		locks:        newLockTable(),
		lockTimeout:  lockTimeout,
	}
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new unit of work.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{
		store:     m.store,
		cards:     make(map[string]*domain.Card),
		newCards:  make(map[string]bool),
		summaries: make(map[string]*domain.AccountSummary),
	}, nil
}

// Tx stages writes until Commit and holds the row locks it acquired.
type Tx struct {
	store     *Store
	held      []string
	cards     map[string]*domain.Card
	newCards  map[string]bool
	txns      []*domain.Transaction
	summaries map[string]*domain.AccountSummary
	events    []*domain.OutboxEvent
	closed    bool
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}

	if t.closed {
		return nil, errTxClosed
	}

	return t, nil
}

func (t *Tx) lock(ctx context.Context, key string) error {
	for _, k := range t.held {
		if k == key {
			return nil
		}
	}

	if err := t.store.locks.acquire(ctx, key, t.store.lockTimeout); err != nil {
		return err
	}

	t.held = append(t.held, key)

	return nil
}

// Commit applies the staged writes atomically and releases every lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return errTxClosed
	}
	defer t.close()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.newCards {
		if _, taken := s.cardNumbers[t.cards[id].Number]; taken {
			return domain.ErrDuplicateCardNumber
		}
	}

	for _, txn := range t.txns {
		if _, taken := s.references[txn.Reference]; taken {
			return domain.ErrDuplicateReference
		}
	}

	for id, card := range t.cards {
		s.cards[id] = card
		if t.newCards[id] {
			s.cardNumbers[card.Number] = id
		}
	}

	for _, txn := range t.txns {
		s.transactions[txn.ID] = txn
		s.byCard[txn.CardID] = append(s.byCard[txn.CardID], txn)
		s.txnOrder = append(s.txnOrder, txn)
		s.references[txn.Reference] = struct{}{}
	}

	for owner, summary := range t.summaries {
		s.summaries[owner] = summary
	}

	s.events = append(s.events, t.events...)

	return nil
}

// Rollback discards the staged writes and releases every lock. It is a no-op
// after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}

	t.close()

	return nil
}

func (t *Tx) close() {
	t.closed = true

	for i := len(t.held) - 1; i >= 0; i-- {
		t.store.locks.release(t.held[i])
	}

	t.held = nil
}

// card returns the card as tx sees it.
func (t *Tx) card(id string) (*domain.Card, bool) {
	if c, ok := t.cards[id]; ok {
		return c, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	c, ok := t.store.cards[id]

	return c, ok
}

// lockTable hands out one exclusive lock per key.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]chan struct{})}
}

func (l *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) error {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: waited %s for %s", domain.ErrConcurrencyConflict, timeout, key)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, ctx.Err())
	}
}

func (l *lockTable) release(key string) {
	l.mu.Lock()
	ch := l.locks[key]
	l.mu.Unlock()

	<-ch
}

func cardLockKey(id string) string {
	return "card:" + id
}

func summaryLockKey(ownerID string) string {
	return "summary:" + ownerID
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
