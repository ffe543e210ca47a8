package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

var outboxColumns = []string{"id", "aggregate_id", "type", "payload", "created_at"}

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewOutboxStore(mock)
	aggregate := uuid.New()

	mock.ExpectExec("INSERT INTO outbox").WithArgs(pgxmock.AnyArg(), aggregate, TypeAppointmentBooked, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if _, err := store.Insert(context.Background(), nil, aggregate, TypeAppointmentBooked, AppointmentBookedV1{AppointmentID: aggregate.String()}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows(outboxColumns).AddRow(id, aggregate, TypeAppointmentBooked, []byte(`{"appointment_id":"x"}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].AggregateID != aggregate {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOutboxInsertUsesCallerTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	store := NewOutboxStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), TypeAppointmentCheckedOut, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := store.Insert(context.Background(), tx, uuid.New(), TypeAppointmentCheckedOut, map[string]string{}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type recordingHandler struct {
	fail    map[uuid.UUID]bool
	handled []uuid.UUID
}

func (h *recordingHandler) Handle(_ context.Context, entry OutboxEntry) error {
	h.handled = append(h.handled, entry.ID)
	if h.fail[entry.ID] {
		return errors.New("transport down")
	}
	return nil
}

type countingRecorder struct{ ok, failed int }

func (r *countingRecorder) ObserveDelivery(_ string, err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func TestDelivererHoldsBackAggregateAfterFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	apptA, apptB := uuid.New(), uuid.New()
	first, second, other := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id").WithArgs(int32(5)).WillReturnRows(pgxmock.NewRows(outboxColumns).
		AddRow(first, apptA, TypeAppointmentBooked, []byte(`{}`), now).
		AddRow(other, apptB, TypeAppointmentBooked, []byte(`{}`), now).
		AddRow(second, apptA, TypeAppointmentCheckedOut, []byte(`{}`), now))
	mock.ExpectExec("UPDATE outbox").WithArgs(other).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	handler := &recordingHandler{fail: map[uuid.UUID]bool{first: true}}
	recorder := &countingRecorder{}
	d := NewDeliverer(NewOutboxStore(mock), handler, nil).WithBatchSize(5).WithRecorder(recorder)

	if got := d.drain(context.Background()); got != 1 {
		t.Fatalf("expected 1 delivered, got %d", got)
	}
	if len(handler.handled) != 2 || handler.handled[1] != other {
		t.Fatalf("expected later event for failed aggregate to be held back, handled %v", handler.handled)
	}
	if recorder.ok != 1 || recorder.failed != 1 {
		t.Fatalf("unexpected recorder counts: %+v", recorder)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelivererStartStopsOnCancel(t *testing.T) {
	d := NewDeliverer(nil, nil, nil)
	done := make(chan struct{})
	go func() {
		d.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverer without store should return immediately")
	}

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewDeliverer(NewOutboxStore(mock), &recordingHandler{}, nil).WithInterval(time.Hour).Start(ctx)
}
