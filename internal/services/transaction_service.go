package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"

	"github.com/google/uuid"
)

// Store is the persistence the service needs; storage.SQLiteRepository implements it.
type Store interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	ListTransactions(ctx context.Context, page core.Page) ([]core.TransactionView, error)
	GetTransaction(ctx context.Context, id string) (core.TransactionView, error)
	UpdateTransaction(ctx context.Context, id string, upd core.TransactionUpdate) error
	DeleteTransaction(ctx context.Context, id string) error
	Summarize(ctx context.Context, f core.SummaryFilter) (core.Summary, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	Ping(ctx context.Context) error
	Close() error
}

type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event amqp.TransactionEvent) error
	Close() error
}

// TransactionService orchestrates ledger operations across SQLite and AMQP.
type TransactionService struct {
	store     Store
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

type Option func(*TransactionService)

func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *TransactionService) { s.newID = newID }
}

// NewTransactionService wires the service. publisher may be nil, which disables events.
func NewTransactionService(store Store, publisher EventPublisher, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction assigns an id and timestamp, saves the transaction and announces it.
func (s *TransactionService) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx := core.NewTransaction(s.newID(), in, s.now())

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventCreated, tx.ID, &tx))
	return tx, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, page core.Page) ([]core.TransactionView, error) {
	return s.store.ListTransactions(ctx, page)
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (core.TransactionView, error) {
	return s.store.GetTransaction(ctx, id)
}

// UpdateTransaction applies the fields present in upd.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, upd core.TransactionUpdate) error {
	if upd.IsEmpty() {
		return core.ErrNoUpdateFields
	}
	if err := s.store.UpdateTransaction(ctx, id, upd); err != nil {
		return err
	}

	if s.publisher != nil {
		event := amqp.NewTransactionEvent(amqp.EventUpdated, id, nil)
		if view, err := s.store.GetTransaction(ctx, id); err == nil {
			event.Transaction = &view.Transaction
		} else {
			slog.WarnContext(ctx, "Failed to reload updated transaction for event", "id", id, "error", err)
		}
		s.publish(ctx, event)
	}
	return nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, id, nil))
	return nil
}

func (s *TransactionService) Summary(ctx context.Context, f core.SummaryFilter) (core.Summary, error) {
	return s.store.Summarize(ctx, f)
}

func (s *TransactionService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// Ping reports whether the store is reachable.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish is best effort: the change is already committed, so failures are only logged.
func (s *TransactionService) publish(ctx context.Context, event amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", event.Event,
			"id", event.ID,
			"error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
