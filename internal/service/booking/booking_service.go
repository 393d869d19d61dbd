package booking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/cargobooking/internal/cache"
	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/Domenick1991/cargobooking/internal/kafka"
	"github.com/Domenick1991/cargobooking/internal/metrics"
	"github.com/Domenick1991/cargobooking/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	refIDPrefix      = "BK-"
	maxRefIDAttempts = 3
	publishTimeout   = 5 * time.Second
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	Transition(ctx context.Context, refID string, action domain.Action, payload domain.TransitionPayload) (*domain.Booking, error)
	GetHistory(ctx context.Context, refID string) (*domain.BookingView, error)
	ListBookings(ctx context.Context, limit, skip int) (*domain.BookingPage, error)
}

type Locker interface {
	Acquire(ctx context.Context, refID string) (*cache.LockHandle, cache.Outcome)
	Release(ctx context.Context, handle *cache.LockHandle) bool
}

type Cache interface {
	GetBooking(ctx context.Context, refID string) (*domain.BookingView, cache.Outcome)
	SetBooking(ctx context.Context, view *domain.BookingView) bool
	InvalidateBooking(ctx context.Context, refID string) bool
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings    repository.BookingRepository
	locker      Locker
	cache       Cache
	producer    Producer
	eventsTopic string

	listDefaultLimit int
	listMaxLimit     int
	newRefID         func() string

	tracer   trace.Tracer
	inflight sync.WaitGroup
}

type CreateBookingInput struct {
	Origin      string   `json:"origin" validate:"required"`
	Destination string   `json:"destination" validate:"required"`
	Pieces      int      `json:"pieces" validate:"required,gt=0"`
	WeightKg    int      `json:"weight_kg" validate:"required,gt=0"`
	FlightIDs   []string `json:"flightIds"`
}

type BookingServiceOption func(*BookingService)

func WithEventsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.eventsTopic = topic
	}
}

func WithListLimits(defaultLimit, maxLimit int) BookingServiceOption {
	return func(s *BookingService) {
		s.listDefaultLimit = defaultLimit
		s.listMaxLimit = maxLimit
	}
}

func WithRefIDGenerator(gen func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.newRefID = gen
	}
}

// NewBookingService wires the orchestrator. locker, cache and producer may
// be nil: the service then runs without serialization, caching or events.
func NewBookingService(
	bookings repository.BookingRepository,
	locker Locker,
	cache Cache,
	producer Producer,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:         bookings,
		locker:           locker,
		cache:            cache,
		producer:         producer,
		listDefaultLimit: 50,
		listMaxLimit:     200,
		newRefID:         NewRefID,
		tracer:           otel.Tracer("github.com/Domenick1991/cargobooking/internal/service/booking"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// NewRefID returns "BK-" followed by eight upper-case hex digits.
func NewRefID() string {
	return refIDPrefix + strings.ToUpper(uuid.NewString()[:8])
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create")
	defer span.End()

	input.Origin = strings.ToUpper(strings.TrimSpace(input.Origin))
	input.Destination = strings.ToUpper(strings.TrimSpace(input.Destination))

	log.Info().
		Str("origin", input.Origin).
		Str("destination", input.Destination).
		Int("pieces", input.Pieces).
		Int("weight_kg", input.WeightKg).
		Msg("create booking request")

	if err := validateInput(input); err != nil {
		log.Warn().Err(err).Msg("create booking validation failed")
		metrics.RecordBookingCreated("invalid")
		return nil, err
	}

	flightIDs := input.FlightIDs
	if flightIDs == nil {
		flightIDs = []string{}
	}

	for attempt := 1; attempt <= maxRefIDAttempts; attempt++ {
		booking := &domain.Booking{
			RefID:       s.newRefID(),
			Origin:      input.Origin,
			Destination: input.Destination,
			Pieces:      input.Pieces,
			WeightKg:    input.WeightKg,
			Status:      domain.BookingStatusBooked,
			FlightIDs:   flightIDs,
			Events: []domain.Event{{
				Type:      domain.BookingStatusBooked,
				Location:  input.Origin,
				Timestamp: domain.NewEventTime(),
			}},
		}

		err := s.bookings.Insert(ctx, booking)
		if errors.Is(err, repository.ErrDuplicateRefID) {
			log.Warn().Str("ref_id", booking.RefID).Int("attempt", attempt).Msg("ref_id collision, regenerating")
			continue
		}
		if err != nil {
			return nil, s.createFailed(span, booking.RefID, domain.Wrap(domain.KindPersistence, "insert booking", err))
		}

		saved, err := s.bookings.FindByRefID(ctx, booking.RefID)
		if err != nil || saved == nil {
			if err == nil {
				err = repository.ErrNotFound
			}
			return nil, s.createFailed(span, booking.RefID, domain.Wrap(domain.KindPersistence, "booking not found after insert", err))
		}

		span.SetAttributes(attribute.String("booking.ref_id", saved.RefID))
		log.Info().Str("ref_id", saved.RefID).Str("origin", saved.Origin).Str("destination", saved.Destination).Msg("booking created and verified")
		metrics.RecordBookingCreated("ok")
		s.publish(ctx, saved)
		return saved, nil
	}

	return nil, s.createFailed(span, "", domain.NewError(domain.KindPersistence, "could not allocate a unique ref_id"))
}

func (s *BookingService) createFailed(span trace.Span, refID string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "create failed")
	log.Error().Err(err).Str("ref_id", refID).Msg("create booking failed")
	metrics.RecordBookingCreated("error")
	return err
}

// Transition runs one state machine step as a critical section guarded by
// the booking's lock: load, validate, append, save, invalidate.
func (s *BookingService) Transition(ctx context.Context, refID string, action domain.Action, payload domain.TransitionPayload) (*domain.Booking, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "booking.transition", trace.WithAttributes(
		attribute.String("booking.ref_id", refID),
		attribute.String("booking.action", string(action)),
	))
	defer span.End()

	logger := log.With().Str("ref_id", refID).Str("action", string(action)).Logger()
	logger.Info().Str("location", payload.Location).Msg("booking transition requested")

	var (
		booking *domain.Booking
		err     error
	)
	if !action.IsValid() {
		err = domain.NewError(domain.KindInvalidTransition, "unknown action "+string(action))
	} else {
		booking, err = s.withLock(ctx, refID, func(ctx context.Context) (*domain.Booking, error) {
			return s.applyTransition(ctx, refID, action, payload)
		})
	}

	metrics.RecordTransition(string(action), outcomeLabel(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.KindOf(err)))
		switch domain.KindOf(err) {
		case domain.KindPersistence, "":
			logger.Error().Err(err).Msg("booking transition failed")
		default:
			logger.Warn().Err(err).Msg("booking transition rejected")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("booking.status", string(booking.Status)))
	logger.Info().Str("status", string(booking.Status)).Msg("booking transition applied")
	s.publish(ctx, booking)
	return booking, nil
}

// withLock runs fn under the booking lock. A reachable lock store that
// reports the key held aborts with LockContention; an unreachable one is
// ignored and fn runs unserialized.
func (s *BookingService) withLock(ctx context.Context, refID string, fn func(context.Context) (*domain.Booking, error)) (*domain.Booking, error) {
	if s.locker == nil {
		return fn(ctx)
	}

	handle, outcome := s.locker.Acquire(ctx, refID)
	switch outcome {
	case cache.Ok:
		defer s.locker.Release(context.WithoutCancel(ctx), handle)
		return fn(ctx)
	case cache.Miss:
		return nil, domain.NewError(domain.KindLockContention, domain.ErrLockContention.Message)
	default:
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		log.Warn().Str("ref_id", refID).Msg("lock store unavailable, proceeding without lock")
		return fn(ctx)
	}
}

func (s *BookingService) applyTransition(ctx context.Context, refID string, action domain.Action, payload domain.TransitionPayload) (*domain.Booking, error) {
	booking, err := s.load(ctx, refID)
	if err != nil {
		return nil, err
	}

	next, event, err := domain.Apply(booking, action, payload)
	if err != nil {
		return nil, err
	}
	booking.Record(next, event)

	if err := s.bookings.Save(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, domain.ErrNotFound.Message)
		}
		return nil, domain.Wrap(domain.KindPersistence, "save booking", err)
	}

	if s.cache != nil {
		s.cache.InvalidateBooking(ctx, refID)
	}
	return booking, nil
}

// GetHistory is read-through and takes no lock. Staleness is bounded by
// the cache TTL and the invalidation done by Transition.
func (s *BookingService) GetHistory(ctx context.Context, refID string) (*domain.BookingView, error) {
	ctx, span := s.tracer.Start(ctx, "booking.history", trace.WithAttributes(attribute.String("booking.ref_id", refID)))
	defer span.End()

	if s.cache != nil {
		if view, outcome := s.cache.GetBooking(ctx, refID); outcome == cache.Ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return view, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	booking, err := s.load(ctx, refID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			log.Warn().Str("ref_id", refID).Msg("booking history: not found")
		} else {
			log.Error().Err(err).Str("ref_id", refID).Msg("booking history: load failed")
			span.RecordError(err)
		}
		return nil, err
	}

	view := booking.View()
	if s.cache != nil {
		s.cache.SetBooking(ctx, &view)
	}
	return &view, nil
}

func (s *BookingService) ListBookings(ctx context.Context, limit, skip int) (*domain.BookingPage, error) {
	if limit <= 0 {
		limit = s.listDefaultLimit
	}
	if limit > s.listMaxLimit {
		limit = s.listMaxLimit
	}
	if skip < 0 {
		skip = 0
	}
	log.Info().Int("limit", limit).Int("skip", skip).Msg("list bookings request")

	bookings, err := s.bookings.FindPage(ctx, limit, skip)
	if err != nil {
		log.Error().Err(err).Msg("list bookings failed")
		return nil, domain.Wrap(domain.KindPersistence, "list bookings", err)
	}
	total, err := s.bookings.Count(ctx)
	if err != nil {
		log.Error().Err(err).Msg("count bookings failed")
		return nil, domain.Wrap(domain.KindPersistence, "count bookings", err)
	}

	page := &domain.BookingPage{
		Total:    total,
		Count:    len(bookings),
		Bookings: make([]domain.BookingSummary, 0, len(bookings)),
	}
	for i := range bookings {
		page.Bookings = append(page.Bookings, bookings[i].Summary())
	}
	return page, nil
}

// Wait blocks until in-flight event publications finish.
func (s *BookingService) Wait() {
	s.inflight.Wait()
}

func (s *BookingService) load(ctx context.Context, refID string) (*domain.Booking, error) {
	booking, err := s.bookings.FindByRefID(ctx, refID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, domain.ErrNotFound.Message)
		}
		return nil, domain.Wrap(domain.KindPersistence, "load booking", err)
	}
	return booking, nil
}

// publish sends the lifecycle event in the background; a broker outage
// never delays or fails the request.
func (s *BookingService) publish(ctx context.Context, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(booking)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := s.producer.Publish(pubCtx, s.eventsTopic, event.RefID, event); err != nil {
			metrics.RecordEventPublished("error")
			log.Warn().Err(err).Str("ref_id", event.RefID).Str("type", event.Type).Msg("failed to publish booking event")
			return
		}
		metrics.RecordEventPublished("ok")
	}()
}

func validateInput(input CreateBookingInput) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Wrap(domain.KindValidation, domain.ErrValidation.Message, err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return domain.NewError(domain.KindValidation, "origin, destination, pieces, and weight_kg are required")
		}
	}
	return domain.NewError(domain.KindValidation, verrs[0].Field()+" must be a positive integer")
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != "" {
		return strings.ToLower(string(kind))
	}
	return "error"
}

var _ BookingUseCase = (*BookingService)(nil)
