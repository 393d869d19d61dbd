package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateRefID = errors.New("duplicate ref_id")
)

// BookingRepository is the authoritative booking store. Save replaces the
// mutable part of the document (status, flight ids, events) in one write.
type BookingRepository interface {
	Insert(ctx context.Context, booking *domain.Booking) error
	FindByRefID(ctx context.Context, refID string) (*domain.Booking, error)
	Save(ctx context.Context, booking *domain.Booking) error
	FindPage(ctx context.Context, limit, skip int) ([]domain.Booking, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, refID string) error
	Ping(ctx context.Context) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `ref_id, origin, destination, pieces, weight_kg, status, flight_ids, events, created_at, updated_at`

// Timestamps are kept at millisecond precision, matching the column defaults.
const saveBookingSQL = `UPDATE bookings SET status=$2, flight_ids=$3, events=$4, updated_at=date_trunc('milliseconds', now())
		WHERE ref_id=$1
		RETURNING updated_at`

func (r *PGBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	events, err := encodeEvents(booking.Events)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `INSERT INTO bookings (ref_id, origin, destination, pieces, weight_kg, status, flight_ids, events)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		booking.RefID, booking.Origin, booking.Destination, booking.Pieces, booking.WeightKg,
		booking.Status, flightIDs(booking.FlightIDs), events).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRefID
		}
		return fmt.Errorf("insert booking %s: %w", booking.RefID, err)
	}
	booking.CreatedAt = booking.CreatedAt.UTC()
	booking.UpdatedAt = booking.UpdatedAt.UTC()
	return nil
}

func (r *PGBookingRepository) FindByRefID(ctx context.Context, refID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ref_id=$1`, refID)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find booking %s: %w", refID, err)
	}
	return b, nil
}

func (r *PGBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	events, err := encodeEvents(booking.Events)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, saveBookingSQL,
		booking.RefID, booking.Status, flightIDs(booking.FlightIDs), events).
		Scan(&booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("save booking %s: %w", booking.RefID, err)
	}
	booking.UpdatedAt = booking.UpdatedAt.UTC()
	return nil
}

func (r *PGBookingRepository) FindPage(ctx context.Context, limit, skip int) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT ref_id, origin, destination, status, pieces, weight_kg, created_at
		FROM bookings
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0, limit)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.RefID, &b.Origin, &b.Destination, &b.Status, &b.Pieces, &b.WeightKg, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = b.CreatedAt.UTC()
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return total, nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, refID string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE ref_id=$1`, refID)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", refID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGBookingRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b      domain.Booking
		events []byte
	)
	if err := row.Scan(&b.RefID, &b.Origin, &b.Destination, &b.Pieces, &b.WeightKg, &b.Status,
		&b.FlightIDs, &events, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	decoded, err := decodeEvents(events)
	if err != nil {
		return nil, fmt.Errorf("decode events of %s: %w", b.RefID, err)
	}
	b.Events = decoded
	b.FlightIDs = flightIDs(b.FlightIDs)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func encodeEvents(events []domain.Event) ([]byte, error) {
	if events == nil {
		events = []domain.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return data, nil
}

func decodeEvents(data []byte) ([]domain.Event, error) {
	events := []domain.Event{}
	if len(data) == 0 {
		return events, nil
	}
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func flightIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ BookingRepository = (*PGBookingRepository)(nil)
