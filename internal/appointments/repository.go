package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/salon-booking-engine/internal/checkout"
	"github.com/wolfman30/salon-booking-engine/internal/discounts"
)

// Querier is satisfied by pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the pool surface the repository needs.
type PgxPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists appointments and their services in Postgres.
// Methods taking a Querier run on the pool when it is nil.
type Repository struct {
	pool PgxPool
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{pool: pool}
}

// Begin starts a transaction on the pool.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) querier(q Querier) Querier {
	if q == nil {
		return r.pool
	}
	return q
}

// LockStylist takes a transaction-scoped advisory lock on the stylist's
// calendar. q must be a transaction; the lock is released on commit or
// rollback.
func (r *Repository) LockStylist(ctx context.Context, q Querier, stylistID uuid.UUID) error {
	if q == nil {
		return errors.New("appointments: stylist lock requires a transaction")
	}
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, stylistID.String()); err != nil {
		return fmt.Errorf("appointments: lock stylist %s: %w", stylistID, err)
	}
	return nil
}

// ListInRange returns the stylist's appointments starting in [from, to),
// skipping exclude statuses, ordered by start time. Services are not loaded.
func (r *Repository) ListInRange(ctx context.Context, q Querier, stylistID uuid.UUID, from, to time.Time, exclude []Status) ([]Appointment, error) {
	query := `
		SELECT id, stylist_id, client_id, start_at, duration_minutes, status
		FROM appointments
		WHERE stylist_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		  AND NOT (status = ANY($4))
		ORDER BY start_at
	`
	rows, err := r.querier(q).Query(ctx, query, stylistID, from, to, statusStrings(exclude))
	if err != nil {
		return nil, fmt.Errorf("appointments: list in range: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var (
			a        Appointment
			clientID pgtype.UUID
			minutes  int32
			status   string
		)
		if err := rows.Scan(&a.ID, &a.StylistID, &clientID, &a.StartAt, &minutes, &status); err != nil {
			return nil, fmt.Errorf("appointments: scan appointment: %w", err)
		}
		a.ClientID = fromPGUUID(clientID)
		a.Duration = time.Duration(minutes) * time.Minute
		a.Status = Status(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list in range: %w", err)
	}
	return out, nil
}

// LastVisit returns the start of the client's latest checked-out appointment
// with the stylist, or nil for a first visit.
func (r *Repository) LastVisit(ctx context.Context, stylistID, clientID uuid.UUID) (*time.Time, error) {
	query := `
		SELECT max(start_at)
		FROM appointments
		WHERE stylist_id = $1 AND client_id = $2 AND status = $3
	`
	var last pgtype.Timestamptz
	if err := r.pool.QueryRow(ctx, query, stylistID, clientID, string(StatusCheckedOut)).Scan(&last); err != nil {
		return nil, fmt.Errorf("appointments: last visit: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	t := last.Time
	return &t, nil
}

// Get loads an appointment with all of its services, including removed ones.
// forUpdate locks the appointment row until q's transaction ends.
func (r *Repository) Get(ctx context.Context, q Querier, id uuid.UUID, forUpdate bool) (*Appointment, error) {
	query := `
		SELECT id, stylist_id, client_id, start_at, duration_minutes, status,
		       total_before_tax, total_tax, total_card_fee, grand_total,
		       has_tax_included, has_card_fee_included, stylist_payout_amount,
		       checked_out_at, created_at
		FROM appointments
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	db := r.querier(q)

	var (
		a                               Appointment
		clientID                        pgtype.UUID
		minutes                         int32
		status                          string
		beforeTax, tax, fee, grand, pay decimal.NullDecimal
		hasTax, hasFee                  pgtype.Bool
		checkedOutAt                    pgtype.Timestamptz
	)
	err := db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.StylistID, &clientID, &a.StartAt, &minutes, &status,
		&beforeTax, &tax, &fee, &grand,
		&hasTax, &hasFee, &pay,
		&checkedOutAt, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("appointments: get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	a.ClientID = fromPGUUID(clientID)
	a.Duration = time.Duration(minutes) * time.Minute
	a.Status = Status(status)
	a.CheckedOutAt = fromPGTime(checkedOutAt)
	if grand.Valid {
		a.Prices = &checkout.AppointmentPrices{
			TotalBeforeTax:      beforeTax.Decimal,
			TotalTax:            tax.Decimal,
			TotalCardFee:        fee.Decimal,
			GrandTotal:          grand.Decimal,
			HasTaxIncluded:      hasTax.Valid && hasTax.Bool,
			HasCardFeeIncluded:  hasFee.Valid && hasFee.Bool,
			StylistPayoutAmount: pay.Decimal,
		}
	}

	services, err := r.listServices(ctx, db, id)
	if err != nil {
		return nil, err
	}
	a.Services = services
	return &a, nil
}

func (r *Repository) listServices(ctx context.Context, q Querier, appointmentID uuid.UUID) ([]Service, error) {
	query := `
		SELECT id, service_uuid, name, regular_price, client_price, applied_discount,
		       discount_percentage, is_original, is_price_edited, deleted_at
		FROM appointment_services
		WHERE appointment_id = $1
		ORDER BY created_at, id
	`
	rows, err := q.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var (
			s         Service
			applied   pgtype.Text
			pct       int32
			deletedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&s.ID, &s.ServiceUUID, &s.Name, &s.RegularPrice, &s.ClientPrice, &applied,
			&pct, &s.IsOriginal, &s.IsPriceEdited, &deletedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan service: %w", err)
		}
		if applied.Valid {
			t := discounts.Type(applied.String)
			s.AppliedDiscount = &t
		}
		s.DiscountPercentage = int(pct)
		s.DeletedAt = fromPGTime(deletedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list services: %w", err)
	}
	return out, nil
}

// Insert writes a new appointment and its services. IDs are assigned when
// unset.
func (r *Repository) Insert(ctx context.Context, q Querier, a *Appointment) error {
	if a == nil {
		return errors.New("appointments: nil appointment")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusNew
	}
	db := r.querier(q)
	query := `
		INSERT INTO appointments (id, stylist_id, client_id, start_at, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	if err := db.QueryRow(ctx, query, a.ID, a.StylistID, toPGUUID(a.ClientID), a.StartAt,
		int32(a.Duration/time.Minute), string(a.Status)).Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	if err := r.insertServices(ctx, db, a.ID, a.Services); err != nil {
		return err
	}
	return nil
}

// AppendServices adds services to an existing appointment.
func (r *Repository) AppendServices(ctx context.Context, q Querier, appointmentID uuid.UUID, services []Service) error {
	return r.insertServices(ctx, r.querier(q), appointmentID, services)
}

func (r *Repository) insertServices(ctx context.Context, q Querier, appointmentID uuid.UUID, services []Service) error {
	query := `
		INSERT INTO appointment_services (id, appointment_id, service_uuid, name, regular_price, client_price,
		                                  applied_discount, discount_percentage, is_original, is_price_edited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i := range services {
		s := &services[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if _, err := q.Exec(ctx, query, s.ID, appointmentID, s.ServiceUUID, s.Name, s.RegularPrice, s.ClientPrice,
			toPGText(s.AppliedDiscount), int32(s.DiscountPercentage), s.IsOriginal, s.IsPriceEdited); err != nil {
			return fmt.Errorf("appointments: insert service: %w", err)
		}
	}
	return nil
}

// RemoveServices soft-deletes service lines so checkout totals skip them.
func (r *Repository) RemoveServices(ctx context.Context, q Querier, appointmentID uuid.UUID, serviceIDs []uuid.UUID, at time.Time) error {
	if len(serviceIDs) == 0 {
		return nil
	}
	query := `
		UPDATE appointment_services
		SET deleted_at = $3
		WHERE appointment_id = $1 AND id = ANY($2) AND deleted_at IS NULL
	`
	if _, err := r.querier(q).Exec(ctx, query, appointmentID, serviceIDs, at); err != nil {
		return fmt.Errorf("appointments: remove services: %w", err)
	}
	return nil
}

// MarkCheckedOut stores the checkout totals and moves a NEW appointment to
// CHECKED_OUT.
func (r *Repository) MarkCheckedOut(ctx context.Context, q Querier, id uuid.UUID, prices checkout.AppointmentPrices, at time.Time) error {
	query := `
		UPDATE appointments
		SET status = $2,
		    total_before_tax = $3,
		    total_tax = $4,
		    total_card_fee = $5,
		    grand_total = $6,
		    has_tax_included = $7,
		    has_card_fee_included = $8,
		    stylist_payout_amount = $9,
		    checked_out_at = $10
		WHERE id = $1 AND status = $11
	`
	ct, err := r.querier(q).Exec(ctx, query, id, string(StatusCheckedOut),
		prices.TotalBeforeTax, prices.TotalTax, prices.TotalCardFee, prices.GrandTotal,
		prices.HasTaxIncluded, prices.HasCardFeeIncluded, prices.StylistPayoutAmount,
		at, string(StatusNew))
	if err != nil {
		return fmt.Errorf("appointments: mark checked out: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("appointments: mark checked out %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateStatus moves an appointment from one status to another. It reports
// ErrNotFound when no row is in the from status.
func (r *Repository) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, from, to Status) error {
	query := `
		UPDATE appointments
		SET status = $2
		WHERE id = $1 AND status = $3
	`
	ct, err := r.querier(q).Exec(ctx, query, id, string(to), string(from))
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("appointments: update status %s: %w", id, ErrNotFound)
	}
	return nil
}

func statusStrings(in []Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func toPGUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil || *id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: [16]byte(*id), Valid: true}
}

func fromPGUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func fromPGTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toPGText(t *discounts.Type) pgtype.Text {
	if t == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*t), Valid: true}
}
