package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	created   []core.Transaction
	updated   map[string]core.TransactionUpdate
	deleted   []string
	rows      map[string]core.TransactionView
	err       error
	getErr    error
	closeErr  error
	closed    bool
	summaries []core.SummaryFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		updated: map[string]core.TransactionUpdate{},
		rows:    map[string]core.TransactionView{},
	}
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, t)
	f.rows[t.ID] = core.TransactionView{Transaction: t}
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, page core.Page) ([]core.TransactionView, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []core.TransactionView{}
	for _, t := range f.created {
		out = append(out, f.rows[t.ID])
	}
	return out, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id string) (core.TransactionView, error) {
	if f.getErr != nil {
		return core.TransactionView{}, f.getErr
	}
	row, ok := f.rows[id]
	if !ok {
		return core.TransactionView{}, core.ErrTransactionNotFound
	}
	return row, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, id string, upd core.TransactionUpdate) error {
	if f.err != nil {
		return f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return core.ErrTransactionNotFound
	}
	if upd.Amount != nil {
		row.Amount = *upd.Amount
	}
	f.rows[id] = row
	f.updated[id] = upd
	return nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.rows[id]; !ok {
		return core.ErrTransactionNotFound
	}
	delete(f.rows, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) Summarize(_ context.Context, filter core.SummaryFilter) (core.Summary, error) {
	f.summaries = append(f.summaries, filter)
	return core.NewSummary(10, 4), f.err
}

func (f *fakeStore) ListCategories(context.Context) ([]core.Category, error) {
	return []core.Category{{ID: 1, Name: "Salary", Type: core.Income}}, f.err
}

func (f *fakeStore) Ping(context.Context) error { return f.err }

func (f *fakeStore) Close() error {
	f.closed = true
	return f.closeErr
}

type fakePublisher struct {
	events   []amqp.TransactionEvent
	err      error
	closeErr error
	closed   bool
}

func (p *fakePublisher) PublishTransactionEvent(_ context.Context, e amqp.TransactionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return p.closeErr
}

var fixedNow = time.Date(2024, 3, 9, 13, 5, 7, 0, time.UTC)

func newTestService(store Store, pub EventPublisher) *TransactionService {
	return NewTransactionService(store, pub,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "fixed-id" }))
}

func TestCreateTransaction(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newTestService(store, pub)

	tx, err := svc.CreateTransaction(context.Background(), core.TransactionInput{
		Type: core.Income, Category: 1, Amount: 1000,
	})
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", tx.ID)
	assert.Equal(t, "2024-03-09T13:05:07.000Z", tx.Date)
	require.Len(t, store.created, 1)
	assert.Equal(t, tx, store.created[0])

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventCreated, pub.events[0].Event)
	assert.Equal(t, "fixed-id", pub.events[0].ID)
	require.NotNil(t, pub.events[0].Transaction)
	assert.Equal(t, tx, *pub.events[0].Transaction)
}

func TestCreateTransaction_DefaultID(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)
	tx, err := svc.CreateTransaction(context.Background(), core.TransactionInput{Type: core.Expense, Category: 2, Amount: 3})
	require.NoError(t, err)
	assert.Len(t, tx.ID, 36)
}

func TestCreateTransaction_StoreErrorSkipsEvent(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk full")
	pub := &fakePublisher{}

	_, err := newTestService(store, pub).CreateTransaction(context.Background(), core.TransactionInput{Type: core.Income})
	assert.ErrorIs(t, err, store.err)
	assert.Empty(t, pub.events)
}

func TestCreateTransaction_PublishFailureIgnored(t *testing.T) {
	pub := &fakePublisher{err: amqp.ErrCircuitOpen}
	_, err := newTestService(newFakeStore(), pub).CreateTransaction(context.Background(), core.TransactionInput{Type: core.Income})
	assert.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestUpdateTransaction(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newTestService(store, pub)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: 5})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateTransaction(ctx, "fixed-id", core.TransactionUpdate{}), core.ErrNoUpdateFields)

	amount := 0.0
	require.NoError(t, svc.UpdateTransaction(ctx, "fixed-id", core.TransactionUpdate{Amount: &amount}))
	require.Len(t, pub.events, 2)
	assert.Equal(t, amqp.EventUpdated, pub.events[1].Event)
	require.NotNil(t, pub.events[1].Transaction)
	assert.Equal(t, 0.0, pub.events[1].Transaction.Amount)

	err = svc.UpdateTransaction(ctx, "missing", core.TransactionUpdate{Amount: &amount})
	assert.ErrorIs(t, err, core.ErrTransactionNotFound)
	assert.Len(t, pub.events, 2)
}

func TestUpdateTransaction_ReloadFailureStillPublishes(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newTestService(store, pub)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: 5})
	require.NoError(t, err)

	store.getErr = errors.New("locked")
	amount := 1.0
	require.NoError(t, svc.UpdateTransaction(ctx, "fixed-id", core.TransactionUpdate{Amount: &amount}))
	require.Len(t, pub.events, 2)
	assert.Nil(t, pub.events[1].Transaction)
}

func TestDeleteTransaction(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newTestService(store, pub)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, core.TransactionInput{Type: core.Income})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, "fixed-id"))
	assert.ErrorIs(t, svc.DeleteTransaction(ctx, "fixed-id"), core.ErrTransactionNotFound)

	require.Len(t, pub.events, 2)
	assert.Equal(t, amqp.EventDeleted, pub.events[1].Event)
	assert.Nil(t, pub.events[1].Transaction)
}

func TestQueriesPassThrough(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)
	ctx := context.Background()

	filter := core.SummaryFilter{Category: "Salary"}
	summary, err := svc.Summary(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, core.Summary{TotalIncome: 10, TotalExpenses: 4, Balance: 6}, summary)
	assert.Equal(t, []core.SummaryFilter{filter}, store.summaries)

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	rows, err := svc.ListTransactions(ctx, core.DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.NoError(t, svc.Ping(ctx))
}

func TestClose(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		assert.NoError(t, NewTransactionService(nil, nil).Close())
	})

	t.Run("closes both", func(t *testing.T) {
		store := newFakeStore()
		pub := &fakePublisher{}
		require.NoError(t, NewTransactionService(store, pub).Close())
		assert.True(t, store.closed)
		assert.True(t, pub.closed)
	})

	t.Run("joins errors", func(t *testing.T) {
		store := newFakeStore()
		store.closeErr = errors.New("store busy")
		pub := &fakePublisher{closeErr: errors.New("channel gone")}
		err := NewTransactionService(store, pub).Close()
		require.Error(t, err)
		assert.ErrorIs(t, err, store.closeErr)
		assert.ErrorIs(t, err, pub.closeErr)
	})
}
