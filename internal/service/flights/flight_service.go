package flights

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Domenick1991/cargobooking/internal/cache"
	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/Domenick1991/cargobooking/internal/repository"
	"github.com/rs/zerolog/log"
)

const DateLayout = "2006-01-02"

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	FindRoute(ctx context.Context, origin, destination, departureDate string) (*domain.Route, error)
}

type RouteCache interface {
	GetRoute(ctx context.Context, origin, destination, date string) (*domain.Route, cache.Outcome)
	SetRoute(ctx context.Context, origin, destination, date string, route *domain.Route) bool
}

type FlightService struct {
	repo  repository.FlightRepository
	cache RouteCache
}

func NewFlightService(repo repository.FlightRepository, cache RouteCache) *FlightService {
	return &FlightService{repo: repo, cache: cache}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "list flights", err)
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Flight not found")
		}
		return nil, domain.Wrap(domain.KindPersistence, "get flight", err)
	}
	return flight, nil
}

// FindRoute returns direct flights and at most one transit pair departing
// between the start of departureDate and the end of the following day.
func (s *FlightService) FindRoute(ctx context.Context, origin, destination, departureDate string) (*domain.Route, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))
	departureDate = strings.TrimSpace(departureDate)

	if origin == "" || destination == "" || departureDate == "" {
		return nil, domain.NewError(domain.KindValidation, "origin, destination, and departure_date are required")
	}
	day, err := time.ParseInLocation(DateLayout, departureDate, time.UTC)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "departure_date must be in YYYY-MM-DD format")
	}

	if s.cache != nil {
		if route, outcome := s.cache.GetRoute(ctx, origin, destination, departureDate); outcome == cache.Ok {
			return route, nil
		}
	}

	from, to := day, endOfNextDay(day)

	direct, err := s.repo.FindDirect(ctx, origin, destination, from, to)
	if err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "find direct flights", err)
	}

	transit, err := s.findTransit(ctx, origin, destination, from, to)
	if err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "find transit route", err)
	}

	route := &domain.Route{DirectFlights: direct, TransitRoute: transit}
	log.Info().
		Str("origin", origin).
		Str("destination", destination).
		Str("date", departureDate).
		Int("direct", len(direct)).
		Bool("transit", transit != nil).
		Msg("route lookup")

	if s.cache != nil {
		s.cache.SetRoute(ctx, origin, destination, departureDate, route)
	}
	return route, nil
}

func (s *FlightService) findTransit(ctx context.Context, origin, destination string, from, to time.Time) (*domain.TransitRoute, error) {
	departures, err := s.repo.FindDepartures(ctx, origin, from, to)
	if err != nil {
		return nil, err
	}

	for _, first := range departures {
		if first.Destination == destination || first.Destination == origin {
			continue
		}
		second, err := s.repo.FindFirstConnection(ctx, first.Destination, destination, first.ArrivalTime, endOfNextDay(first.ArrivalTime))
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &domain.TransitRoute{First: first, Second: *second}, nil
	}
	return nil, nil
}

func endOfNextDay(t time.Time) time.Time {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, 2).Add(-time.Millisecond)
}

var _ FlightUseCase = (*FlightService)(nil)
