// Package ledger owns the income and expense collections and writes every
// mutation through to a kv.Store.
//
// Each collection is persisted as a whole under its own key. Reads always
// go back to the store, so a failed write leaves the previously persisted
// state as the visible one.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"fincontrol/internal/core"
	"fincontrol/internal/kv"
	"fincontrol/internal/log"
)

// maxIDAttempts bounds regeneration when a generator returns an id that is
// already taken in the collection.
const maxIDAttempts = 5

// Notifier receives an event after each successful mutation.
type Notifier interface {
	Notify(ctx context.Context, ev core.ChangeEvent) error
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides the timestamp source of change events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type Store struct {
	kv       kv.Store
	ids      IDGenerator
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time

	// mu serializes read-modify-write cycles on the collections.
	mu       sync.Mutex
	revision atomic.Uint64
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		ids:    UUIDGenerator{},
		logger: log.Discard().WithComponent(log.ComponentLedger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Revision increases on every successful mutation. Readers can key caches
// on it.
func (s *Store) Revision() uint64 {
	return s.revision.Load()
}

// List returns the kind's collection in insertion order.
func (s *Store) List(ctx context.Context, kind core.Kind) ([]core.Transaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadForRead(ctx, kind), nil
}

// Snapshot returns both collections read under the same lock.
func (s *Store) Snapshot(ctx context.Context) (incomes, expenses []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadForRead(ctx, core.Income), s.loadForRead(ctx, core.Expense)
}

// ListAll returns incomes and expenses together, newest date first.
// Records sharing a date keep incomes-then-expenses insertion order.
func (s *Store) ListAll(ctx context.Context) []core.Transaction {
	incomes, expenses := s.Snapshot(ctx)
	all := make([]core.Transaction, 0, len(incomes)+len(expenses))
	all = append(all, incomes...)
	all = append(all, expenses...)
	slices.SortStableFunc(all, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
	return all
}

func (s *Store) Get(ctx context.Context, kind core.Kind, id string) (core.Transaction, error) {
	list, err := s.List(ctx, kind)
	if err != nil {
		return core.Transaction{}, err
	}
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("%w: %s %s", core.ErrNotFound, kind, id)
}

// Create appends a new record. When the write fails the record is still
// returned alongside core.ErrWriteFailed; it is not durable.
func (s *Store) Create(ctx context.Context, kind core.Kind, fields core.Fields) (core.Transaction, error) {
	if !kind.Valid() {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
	fields = fields.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadForWrite(ctx, kind)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:          s.newID(list),
		Kind:        kind,
		Description: fields.Description,
		Amount:      fields.Amount,
		Date:        fields.Date,
		Category:    fields.Category,
	}
	list = append(list, t)

	if err := s.persist(ctx, kind, list); err != nil {
		return t, err
	}
	s.committed(ctx, core.ChangeEvent{Op: core.OpCreated, Kind: kind, ID: t.ID})
	return t, nil
}

// Update merges patch over the record with the given id. A missing id is
// core.ErrNotFound and nothing is written.
func (s *Store) Update(ctx context.Context, kind core.Kind, id string, patch core.Patch) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadForWrite(ctx, kind)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(list, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s %s", core.ErrNotFound, kind, id)
	}
	list[i] = patch.Apply(list[i])

	if err := s.persist(ctx, kind, list); err != nil {
		return err
	}
	s.committed(ctx, core.ChangeEvent{Op: core.OpUpdated, Kind: kind, ID: id})
	return nil
}

// Delete removes the record with the given id. Deleting an unknown id
// succeeds.
func (s *Store) Delete(ctx context.Context, kind core.Kind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadForWrite(ctx, kind)
	if err != nil {
		return err
	}
	filtered := slices.DeleteFunc(list, func(t core.Transaction) bool { return t.ID == id })

	if err := s.persist(ctx, kind, filtered); err != nil {
		return err
	}
	s.committed(ctx, core.ChangeEvent{Op: core.OpDeleted, Kind: kind, ID: id})
	return nil
}

// ClearAll empties both collections. Other keys, such as the theme, are
// left alone.
func (s *Store) ClearAll(ctx context.Context) error {
	empty := []core.Transaction{}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistBoth(ctx, empty, empty); err != nil {
		return err
	}
	s.committed(ctx, core.ChangeEvent{Op: core.OpCleared})
	return nil
}

// Replace overwrites whole collections. A nil pointer leaves that
// collection untouched. When both are given and the backing store supports
// batches, the two keys are written atomically.
func (s *Store) Replace(ctx context.Context, incomes, expenses *[]core.Transaction) error {
	if incomes == nil && expenses == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		err  error
		kind core.Kind
	)
	switch {
	case incomes != nil && expenses != nil:
		err = s.persistBoth(ctx, *incomes, *expenses)
	case incomes != nil:
		kind = core.Income
		err = s.persist(ctx, kind, *incomes)
	default:
		kind = core.Expense
		err = s.persist(ctx, kind, *expenses)
	}
	if err != nil {
		return err
	}
	s.committed(ctx, core.ChangeEvent{Op: core.OpReplaced, Kind: kind})
	return nil
}

// load reads a collection. Records stored without a kind inherit their
// collection's. When the stored value, or any record in it, cannot be
// decoded the readable records are returned together with an error
// wrapping core.ErrCorruptData; writing that list back would lose data.
func (s *Store) load(ctx context.Context, kind core.Kind) ([]core.Transaction, error) {
	raw, ok := s.kv.Get(ctx, kind.Collection())
	if !ok {
		return []core.Transaction{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []core.Transaction{}, fmt.Errorf("%w: %s: %w", core.ErrCorruptData, kind.Collection(), err)
	}

	list := make([]core.Transaction, 0, len(items))
	var errs []error
	for i, item := range items {
		var t core.Transaction
		if err := json.Unmarshal(item, &t); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if t.Kind == "" {
			t.Kind = kind
		}
		list = append(list, t)
	}
	if len(errs) > 0 {
		return list, fmt.Errorf("%w: %s: %w", core.ErrCorruptData, kind.Collection(), errors.Join(errs...))
	}
	return list, nil
}

// loadForRead is load for callers that only display data: unreadable
// records are logged and skipped.
func (s *Store) loadForRead(ctx context.Context, kind core.Kind) []core.Transaction {
	list, err := s.load(ctx, kind)
	if err != nil {
		s.logger.WarnContext(ctx, "Stored collection is partly unreadable",
			log.FieldKind, kind,
			log.FieldCount, len(list),
			log.FieldError, err)
	}
	return list
}

// loadForWrite is load for read-modify-write cycles. Nothing may be
// written back when part of the collection could not be read.
func (s *Store) loadForWrite(ctx context.Context, kind core.Kind) ([]core.Transaction, error) {
	list, err := s.load(ctx, kind)
	if err != nil {
		s.logger.ErrorContext(ctx, "Refusing to modify unreadable collection",
			log.FieldKind, kind,
			log.FieldError, err)
		return nil, err
	}
	return list, nil
}

func (s *Store) persist(ctx context.Context, kind core.Kind, list []core.Transaction) error {
	if list == nil {
		list = []core.Transaction{}
	}
	if !s.kv.Set(ctx, kind.Collection(), list) {
		s.logger.ErrorContext(ctx, "Failed to persist collection",
			log.FieldKind, kind,
			log.FieldCount, len(list))
		return fmt.Errorf("persist %s: %w", kind.Collection(), core.ErrWriteFailed)
	}
	return nil
}

func (s *Store) persistBoth(ctx context.Context, incomes, expenses []core.Transaction) error {
	if incomes == nil {
		incomes = []core.Transaction{}
	}
	if expenses == nil {
		expenses = []core.Transaction{}
	}
	if b, ok := s.kv.(kv.Batcher); ok {
		values := map[string]any{
			core.Income.Collection():  incomes,
			core.Expense.Collection(): expenses,
		}
		if !b.SetMany(ctx, values) {
			s.logger.ErrorContext(ctx, "Failed to persist both collections",
				log.FieldCount, len(incomes)+len(expenses))
			return fmt.Errorf("persist ledger: %w", core.ErrWriteFailed)
		}
		return nil
	}
	if err := s.persist(ctx, core.Income, incomes); err != nil {
		return err
	}
	return s.persist(ctx, core.Expense, expenses)
}

func (s *Store) newID(existing []core.Transaction) string {
	var id string
	for range maxIDAttempts {
		id = s.ids.NewID()
		taken := slices.ContainsFunc(existing, func(t core.Transaction) bool { return t.ID == id })
		if !taken {
			return id
		}
	}
	// The generator keeps colliding; fall back to a random UUID.
	return UUIDGenerator{}.NewID()
}

func (s *Store) committed(ctx context.Context, ev core.ChangeEvent) {
	rev := s.revision.Add(1)
	ev.At = s.now().UTC()

	s.logger.InfoContext(ctx, "Ledger updated",
		log.FieldOperation, ev.Op,
		log.FieldKind, ev.Kind,
		log.FieldRecordID, ev.ID,
		log.FieldRevision, rev)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event",
			log.FieldOperation, ev.Op,
			log.FieldError, err)
	}
}
