package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// FindDirect returns origin→destination flights departing in [from, to].
	FindDirect(ctx context.Context, origin, destination string, from, to time.Time) ([]domain.Flight, error)
	// FindDepartures returns every flight leaving origin in [from, to].
	FindDepartures(ctx context.Context, origin string, from, to time.Time) ([]domain.Flight, error)
	// FindFirstConnection returns the earliest origin→destination flight
	// departing in [from, to], or ErrNotFound.
	FindFirstConnection(ctx context.Context, origin, destination string, from, to time.Time) (*domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_id, flight_number, airline_name, origin, destination, departure_time, arrival_time, created_at, updated_at`

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get flight %d: %w", id, err)
	}
	return f, nil
}

func (r *PGFlightRepository) FindDirect(ctx context.Context, origin, destination string, from, to time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin=$1 AND destination=$2 AND departure_time BETWEEN $3 AND $4
		ORDER BY departure_time`, origin, destination, from, to)
	if err != nil {
		return nil, fmt.Errorf("find direct flights: %w", err)
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) FindDepartures(ctx context.Context, origin string, from, to time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin=$1 AND departure_time BETWEEN $2 AND $3
		ORDER BY departure_time`, origin, from, to)
	if err != nil {
		return nil, fmt.Errorf("find departures: %w", err)
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) FindFirstConnection(ctx context.Context, origin, destination string, from, to time.Time) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin=$1 AND destination=$2 AND departure_time BETWEEN $3 AND $4
		ORDER BY departure_time
		LIMIT 1`, origin, destination, from, to)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find connection: %w", err)
	}
	return f, nil
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightID, &f.FlightNumber, &f.AirlineName, &f.Origin, &f.Destination,
		&f.DepartureTime, &f.ArrivalTime, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.DepartureTime = f.DepartureTime.UTC()
	f.ArrivalTime = f.ArrivalTime.UTC()
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
