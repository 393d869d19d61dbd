package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/cargobooking/internal/cache"
	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/Domenick1991/cargobooking/internal/kafka"
	"github.com/Domenick1991/cargobooking/internal/repository"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mocks

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) FindByRefID(ctx context.Context, refID string) (*domain.Booking, error) {
	args := m.Called(ctx, refID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) FindPage(ctx context.Context, limit, skip int) ([]domain.Booking, error) {
	args := m.Called(ctx, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, refID string) error {
	args := m.Called(ctx, refID)
	return args.Error(0)
}

func (m *MockBookingRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, refID string) (*cache.LockHandle, cache.Outcome) {
	args := m.Called(ctx, refID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(cache.Outcome)
	}
	return args.Get(0).(*cache.LockHandle), args.Get(1).(cache.Outcome)
}

func (m *MockLocker) Release(ctx context.Context, handle *cache.LockHandle) bool {
	args := m.Called(ctx, handle)
	return args.Bool(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetBooking(ctx context.Context, refID string) (*domain.BookingView, cache.Outcome) {
	args := m.Called(ctx, refID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(cache.Outcome)
	}
	return args.Get(0).(*domain.BookingView), args.Get(1).(cache.Outcome)
}

func (m *MockCache) SetBooking(ctx context.Context, view *domain.BookingView) bool {
	args := m.Called(ctx, view)
	return args.Bool(0)
}

func (m *MockCache) InvalidateBooking(ctx context.Context, refID string) bool {
	args := m.Called(ctx, refID)
	return args.Bool(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

const testTopic = "booking-events"

func fixedRefID(id string) BookingServiceOption {
	return WithRefIDGenerator(func() string { return id })
}

func storedBooking(refID string, status domain.BookingStatus) *domain.Booking {
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		RefID:       refID,
		Origin:      "DEL",
		Destination: "BLR",
		Pieces:      3,
		WeightKg:    40,
		Status:      domain.BookingStatusBooked,
		FlightIDs:   []string{},
		Events:      []domain.Event{{Type: domain.BookingStatusBooked, Location: "DEL", Timestamp: created}},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if status != domain.BookingStatusBooked {
		b.Status = status
		b.Events = append(b.Events, domain.Event{Type: status, Location: "HYD", Timestamp: created.Add(time.Hour)})
	}
	return b
}

// ============================ CreateBooking ============================

func TestBookingService_CreateBooking_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	producer := &MockProducer{}
	service := NewBookingService(repo, nil, nil, producer, WithEventsTopic(testTopic), fixedRefID("BK-TEST0001"))

	repo.On("Insert", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.RefID == "BK-TEST0001" &&
			b.Origin == "DEL" &&
			b.Destination == "BLR" &&
			b.Status == domain.BookingStatusBooked &&
			len(b.Events) == 1 &&
			b.Events[0].Type == domain.BookingStatusBooked &&
			b.Events[0].Location == "DEL"
	})).Return(nil).Once()
	repo.On("FindByRefID", mock.Anything, "BK-TEST0001").Return(storedBooking("BK-TEST0001", domain.BookingStatusBooked), nil).Once()
	producer.On("Publish", mock.Anything, testTopic, "BK-TEST0001", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == "BOOKED" && e.Status == "BOOKED"
	})).Return(nil).Once()

	booking, err := service.CreateBooking(context.Background(), CreateBookingInput{
		Origin:      " del ",
		Destination: "blr",
		Pieces:      3,
		WeightKg:    40,
	})
	service.Wait()

	require.NoError(t, err)
	assert.Equal(t, "BK-TEST0001", booking.RefID)
	assert.Equal(t, domain.BookingStatusBooked, booking.Status)
	assert.Len(t, booking.Events, 1)

	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestBookingService_CreateBooking_ValidationErrors(t *testing.T) {
	repo := &MockBookingRepository{}
	service := NewBookingService(repo, nil, nil, nil)

	testCases := []struct {
		name        string
		input       CreateBookingInput
		expectedErr string
	}{
		{
			name:        "missing origin",
			input:       CreateBookingInput{Destination: "BLR", Pieces: 1, WeightKg: 1},
			expectedErr: "origin, destination, pieces, and weight_kg are required",
		},
		{
			name:        "blank destination",
			input:       CreateBookingInput{Origin: "DEL", Destination: "   ", Pieces: 1, WeightKg: 1},
			expectedErr: "origin, destination, pieces, and weight_kg are required",
		},
		{
			name:        "zero pieces",
			input:       CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 0, WeightKg: 1},
			expectedErr: "origin, destination, pieces, and weight_kg are required",
		},
		{
			name:        "negative pieces",
			input:       CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: -2, WeightKg: 1},
			expectedErr: "pieces must be a positive integer",
		},
		{
			name:        "negative weight",
			input:       CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: -7},
			expectedErr: "weight_kg must be a positive integer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			booking, err := service.CreateBooking(context.Background(), tc.input)
			assert.Nil(t, booking)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}

	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_RetriesOnDuplicateRefID(t *testing.T) {
	repo := &MockBookingRepository{}
	ids := []string{"BK-DUP00001", "BK-FRESH001"}
	next := 0
	service := NewBookingService(repo, nil, nil, nil, WithRefIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	repo.On("Insert", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool { return b.RefID == "BK-DUP00001" })).
		Return(repository.ErrDuplicateRefID).Once()
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool { return b.RefID == "BK-FRESH001" })).
		Return(nil).Once()
	repo.On("FindByRefID", mock.Anything, "BK-FRESH001").Return(storedBooking("BK-FRESH001", domain.BookingStatusBooked), nil).Once()

	booking, err := service.CreateBooking(context.Background(), CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: 1})

	require.NoError(t, err)
	assert.Equal(t, "BK-FRESH001", booking.RefID)
	repo.AssertExpectations(t)
}

func TestBookingService_CreateBooking_DuplicateExhausted(t *testing.T) {
	repo := &MockBookingRepository{}
	service := NewBookingService(repo, nil, nil, nil, fixedRefID("BK-DUP00001"))

	repo.On("Insert", mock.Anything, mock.Anything).Return(repository.ErrDuplicateRefID).Times(maxRefIDAttempts)

	booking, err := service.CreateBooking(context.Background(), CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: 1})

	assert.Nil(t, booking)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "FindByRefID", mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_NotReadableAfterInsert(t *testing.T) {
	repo := &MockBookingRepository{}
	producer := &MockProducer{}
	service := NewBookingService(repo, nil, nil, producer, WithEventsTopic(testTopic), fixedRefID("BK-GHOST001"))

	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("FindByRefID", mock.Anything, "BK-GHOST001").Return(nil, repository.ErrNotFound).Once()

	booking, err := service.CreateBooking(context.Background(), CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: 1})
	service.Wait()

	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_InsertFails(t *testing.T) {
	repo := &MockBookingRepository{}
	service := NewBookingService(repo, nil, nil, nil)

	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	booking, err := service.CreateBooking(context.Background(), CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: 1})

	assert.Nil(t, booking)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.Equal(t, "Internal server error", domain.PublicMessage(err))
}

func TestNewRefID_Format(t *testing.T) {
	id := NewRefID()
	assert.Regexp(t, `^BK-[0-9A-F]{8}$`, id)
	assert.NotEqual(t, id, NewRefID())
}

// ============================ Transition ============================

type transitionMocks struct {
	repo     *MockBookingRepository
	locker   *MockLocker
	cache    *MockCache
	producer *MockProducer
	service  *BookingService
}

func newTransitionMocks() *transitionMocks {
	m := &transitionMocks{
		repo:     &MockBookingRepository{},
		locker:   &MockLocker{},
		cache:    &MockCache{},
		producer: &MockProducer{},
	}
	m.service = NewBookingService(m.repo, m.locker, m.cache, m.producer, WithEventsTopic(testTopic))
	return m
}

func (m *transitionMocks) assertExpectations(t *testing.T) {
	m.service.Wait()
	m.repo.AssertExpectations(t)
	m.locker.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.producer.AssertExpectations(t)
}

func TestBookingService_Transition_Depart(t *testing.T) {
	m := newTransitionMocks()
	handle := &cache.LockHandle{Key: cache.LockKey("BK-AAAA0001"), Token: "t1", TTL: 5 * time.Second}

	m.locker.On("Acquire", mock.Anything, "BK-AAAA0001").Return(handle, cache.Ok).Once()
	m.repo.On("FindByRefID", mock.Anything, "BK-AAAA0001").Return(storedBooking("BK-AAAA0001", domain.BookingStatusBooked), nil).Once()
	m.repo.On("Save", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.Status == domain.BookingStatusDeparted && len(b.Events) == 2
	})).Return(nil).Once()
	m.cache.On("InvalidateBooking", mock.Anything, "BK-AAAA0001").Return(true).Once()
	m.locker.On("Release", mock.Anything, handle).Return(true).Once()
	m.producer.On("Publish", mock.Anything, testTopic, "BK-AAAA0001", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == "DEPARTED" && e.Location == "DEL"
	})).Return(nil).Once()

	booking, err := m.service.Transition(context.Background(), "BK-AAAA0001", domain.ActionDepart, domain.TransitionPayload{
		Location:   "DEL",
		FlightInfo: map[string]any{"flightNumber": "AI-101"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusDeparted, booking.Status)
	require.Len(t, booking.Events, 2)
	assert.Equal(t, "AI-101", booking.Events[1].FlightInfo["flightNumber"])
	m.assertExpectations(t)
}

func TestBookingService_Transition_LockContention(t *testing.T) {
	m := newTransitionMocks()

	m.locker.On("Acquire", mock.Anything, "BK-AAAA0002").Return(nil, cache.Miss).Once()

	booking, err := m.service.Transition(context.Background(), "BK-AAAA0002", domain.ActionDepart, domain.TransitionPayload{Location: "DEL"})

	assert.Nil(t, booking)
	assert.ErrorIs(t, err, domain.ErrLockContention)
	assert.Equal(t, "Could not acquire lock for booking. Please try again.", domain.PublicMessage(err))
	m.repo.AssertNotCalled(t, "FindByRefID", mock.Anything, mock.Anything)
	m.locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestBookingService_Transition_LockStoreUnavailable(t *testing.T) {
	m := newTransitionMocks()

	m.locker.On("Acquire", mock.Anything, "BK-AAAA0003").Return(nil, cache.Unavailable).Once()
	m.repo.On("FindByRefID", mock.Anything, "BK-AAAA0003").Return(storedBooking("BK-AAAA0003", domain.BookingStatusDeparted), nil).Once()
	m.repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	m.cache.On("InvalidateBooking", mock.Anything, "BK-AAAA0003").Return(false).Once()
	m.producer.On("Publish", mock.Anything, testTopic, "BK-AAAA0003", mock.Anything).Return(nil).Once()

	booking, err := m.service.Transition(context.Background(), "BK-AAAA0003", domain.ActionArrive, domain.TransitionPayload{Location: "BLR"})

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusArrived, booking.Status)
	m.locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestBookingService_Transition_CanceledContextDoesNotFailOpen(t *testing.T) {
	m := newTransitionMocks()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.locker.On("Acquire", mock.Anything, "BK-AAAA0009").Return(nil, cache.Unavailable).Once()

	booking, err := m.service.Transition(ctx, "BK-AAAA0009", domain.ActionDepart, domain.TransitionPayload{Location: "DEL"})

	assert.Nil(t, booking)
	assert.ErrorIs(t, err, context.Canceled)
	m.repo.AssertNotCalled(t, "FindByRefID", mock.Anything, mock.Anything)
	m.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestBookingService_Transition_Rejections(t *testing.T) {
	testCases := []struct {
		name   string
		status domain.BookingStatus
		action domain.Action
		kind   domain.ErrorKind
	}{
		{"arrive before depart", domain.BookingStatusBooked, domain.ActionArrive, domain.KindInvalidTransition},
		{"cancel after arrival", domain.BookingStatusArrived, domain.ActionCancel, domain.KindAlreadyArrived},
		{"depart cancelled", domain.BookingStatusCancelled, domain.ActionDepart, domain.KindCancelledBooking},
		{"deliver twice", domain.BookingStatusDelivered, domain.ActionDeliver, domain.KindInvalidTransition},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTransitionMocks()
			handle := &cache.LockHandle{Key: cache.LockKey("BK-REJ00001"), Token: "t"}

			m.locker.On("Acquire", mock.Anything, "BK-REJ00001").Return(handle, cache.Ok).Once()
			m.repo.On("FindByRefID", mock.Anything, "BK-REJ00001").Return(storedBooking("BK-REJ00001", tc.status), nil).Once()
			m.locker.On("Release", mock.Anything, handle).Return(true).Once()

			booking, err := m.service.Transition(context.Background(), "BK-REJ00001", tc.action, domain.TransitionPayload{Location: "BLR"})

			assert.Nil(t, booking)
			assert.Equal(t, tc.kind, domain.KindOf(err))
			m.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			m.cache.AssertNotCalled(t, "InvalidateBooking", mock.Anything, mock.Anything)
			m.producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			m.assertExpectations(t)
		})
	}
}

func TestBookingService_Transition_NotFoundReleasesLock(t *testing.T) {
	m := newTransitionMocks()
	handle := &cache.LockHandle{Key: cache.LockKey("BK-MISSING1"), Token: "t"}

	m.locker.On("Acquire", mock.Anything, "BK-MISSING1").Return(handle, cache.Ok).Once()
	m.repo.On("FindByRefID", mock.Anything, "BK-MISSING1").Return(nil, repository.ErrNotFound).Once()
	m.locker.On("Release", mock.Anything, handle).Return(true).Once()

	_, err := m.service.Transition(context.Background(), "BK-MISSING1", domain.ActionCancel, domain.TransitionPayload{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.assertExpectations(t)
}

func TestBookingService_Transition_SaveFails(t *testing.T) {
	m := newTransitionMocks()
	handle := &cache.LockHandle{Key: cache.LockKey("BK-SAVE0001"), Token: "t"}

	m.locker.On("Acquire", mock.Anything, "BK-SAVE0001").Return(handle, cache.Ok).Once()
	m.repo.On("FindByRefID", mock.Anything, "BK-SAVE0001").Return(storedBooking("BK-SAVE0001", domain.BookingStatusBooked), nil).Once()
	m.repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("deadlock detected")).Once()
	m.locker.On("Release", mock.Anything, handle).Return(true).Once()

	_, err := m.service.Transition(context.Background(), "BK-SAVE0001", domain.ActionCancel, domain.TransitionPayload{})

	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.Equal(t, "Internal server error", domain.PublicMessage(err))
	m.cache.AssertNotCalled(t, "InvalidateBooking", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestBookingService_Transition_UnknownAction(t *testing.T) {
	m := newTransitionMocks()

	_, err := m.service.Transition(context.Background(), "BK-AAAA0001", domain.Action("teleport"), domain.TransitionPayload{})

	assert.Equal(t, domain.KindInvalidTransition, domain.KindOf(err))
	m.locker.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)
}

func TestBookingService_Transition_PublishFailureIsIgnored(t *testing.T) {
	m := newTransitionMocks()
	handle := &cache.LockHandle{Key: cache.LockKey("BK-PUB00001"), Token: "t"}

	m.locker.On("Acquire", mock.Anything, "BK-PUB00001").Return(handle, cache.Ok).Once()
	m.repo.On("FindByRefID", mock.Anything, "BK-PUB00001").Return(storedBooking("BK-PUB00001", domain.BookingStatusBooked), nil).Once()
	m.repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	m.cache.On("InvalidateBooking", mock.Anything, "BK-PUB00001").Return(true).Once()
	m.locker.On("Release", mock.Anything, handle).Return(true).Once()
	m.producer.On("Publish", mock.Anything, testTopic, "BK-PUB00001", mock.Anything).Return(errors.New("no brokers")).Once()

	booking, err := m.service.Transition(context.Background(), "BK-PUB00001", domain.ActionCancel, domain.TransitionPayload{})

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, booking.Status)
	assert.Equal(t, domain.CancelLocation, booking.Events[len(booking.Events)-1].Location)
	m.assertExpectations(t)
}

// ============================ GetHistory / ListBookings ============================

func TestBookingService_GetHistory_CacheHit(t *testing.T) {
	repo := &MockBookingRepository{}
	c := &MockCache{}
	service := NewBookingService(repo, nil, c, nil)

	view := storedBooking("BK-HIT00001", domain.BookingStatusDeparted).View()
	c.On("GetBooking", mock.Anything, "BK-HIT00001").Return(&view, cache.Ok).Once()

	got, err := service.GetHistory(context.Background(), "BK-HIT00001")

	require.NoError(t, err)
	assert.Equal(t, &view, got)
	repo.AssertNotCalled(t, "FindByRefID", mock.Anything, mock.Anything)
	c.AssertExpectations(t)
}

func TestBookingService_GetHistory_CacheMissPopulates(t *testing.T) {
	for _, outcome := range []cache.Outcome{cache.Miss, cache.Unavailable} {
		t.Run(outcome.String(), func(t *testing.T) {
			repo := &MockBookingRepository{}
			c := &MockCache{}
			service := NewBookingService(repo, nil, c, nil)

			stored := storedBooking("BK-MISS0001", domain.BookingStatusDeparted)
			c.On("GetBooking", mock.Anything, "BK-MISS0001").Return(nil, outcome).Once()
			repo.On("FindByRefID", mock.Anything, "BK-MISS0001").Return(stored, nil).Once()
			c.On("SetBooking", mock.Anything, mock.MatchedBy(func(v *domain.BookingView) bool {
				return v.RefID == "BK-MISS0001" && v.Status == domain.BookingStatusDeparted
			})).Return(outcome == cache.Miss).Once()

			got, err := service.GetHistory(context.Background(), "BK-MISS0001")

			require.NoError(t, err)
			assert.Equal(t, stored.View(), *got)
			repo.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestBookingService_GetHistory_NotFound(t *testing.T) {
	repo := &MockBookingRepository{}
	c := &MockCache{}
	service := NewBookingService(repo, nil, c, nil)

	c.On("GetBooking", mock.Anything, "BK-NOPE0000").Return(nil, cache.Miss).Once()
	repo.On("FindByRefID", mock.Anything, "BK-NOPE0000").Return(nil, repository.ErrNotFound).Once()

	got, err := service.GetHistory(context.Background(), "BK-NOPE0000")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	c.AssertNotCalled(t, "SetBooking", mock.Anything, mock.Anything)
}

func TestBookingService_ListBookings_Clamping(t *testing.T) {
	testCases := []struct {
		name      string
		limit     int
		skip      int
		wantLimit int
		wantSkip  int
	}{
		{"defaults", 0, 0, 50, 0},
		{"negative skip", 10, -4, 10, 0},
		{"over max", 1000, 5, 200, 5},
		{"negative limit", -1, 0, 50, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &MockBookingRepository{}
			service := NewBookingService(repo, nil, nil, nil)

			rows := []domain.Booking{*storedBooking("BK-LIST0001", domain.BookingStatusBooked)}
			repo.On("FindPage", mock.Anything, tc.wantLimit, tc.wantSkip).Return(rows, nil).Once()
			repo.On("Count", mock.Anything).Return(int64(7), nil).Once()

			page, err := service.ListBookings(context.Background(), tc.limit, tc.skip)

			require.NoError(t, err)
			assert.Equal(t, int64(7), page.Total)
			assert.Equal(t, 1, page.Count)
			assert.Equal(t, "BK-LIST0001", page.Bookings[0].RefID)
			repo.AssertExpectations(t)
		})
	}
}

func TestBookingService_ListBookings_StoreError(t *testing.T) {
	repo := &MockBookingRepository{}
	service := NewBookingService(repo, nil, nil, nil)

	repo.On("FindPage", mock.Anything, 50, 0).Return(nil, errors.New("timeout")).Once()

	page, err := service.ListBookings(context.Background(), 0, 0)

	assert.Nil(t, page)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
}

// ============================ redis-backed ============================

// memoryRepository is a goroutine-safe in-process store. Reads are slowed
// down to widen the load/save window of concurrent transitions.
type memoryRepository struct {
	mu        sync.Mutex
	bookings  map[string]*domain.Booking
	readDelay time.Duration
}

func newMemoryRepository(readDelay time.Duration) *memoryRepository {
	return &memoryRepository{bookings: make(map[string]*domain.Booking), readDelay: readDelay}
}

func clone(b *domain.Booking) *domain.Booking {
	c := *b
	c.FlightIDs = append([]string{}, b.FlightIDs...)
	c.Events = append([]domain.Event{}, b.Events...)
	return &c
}

func (r *memoryRepository) Insert(_ context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[booking.RefID]; ok {
		return repository.ErrDuplicateRefID
	}
	booking.CreatedAt = domain.NewEventTime()
	booking.UpdatedAt = booking.CreatedAt
	r.bookings[booking.RefID] = clone(booking)
	return nil
}

func (r *memoryRepository) FindByRefID(_ context.Context, refID string) (*domain.Booking, error) {
	time.Sleep(r.readDelay)
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[refID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(b), nil
}

func (r *memoryRepository) Save(_ context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[booking.RefID]; !ok {
		return repository.ErrNotFound
	}
	booking.UpdatedAt = domain.NewEventTime()
	r.bookings[booking.RefID] = clone(booking)
	return nil
}

func (r *memoryRepository) FindPage(_ context.Context, limit, skip int) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Booking, 0, limit)
	for _, b := range r.bookings {
		out = append(out, *clone(b))
	}
	return out, nil
}

func (r *memoryRepository) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.bookings)), nil
}

func (r *memoryRepository) Delete(_ context.Context, refID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bookings, refID)
	return nil
}

func (r *memoryRepository) Ping(context.Context) error { return nil }

func setupRedisService(t *testing.T, readDelay time.Duration) (*miniredis.Miniredis, *memoryRepository, *BookingService) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	guard := cache.NewGuard(client, 500*time.Millisecond)
	repo := newMemoryRepository(readDelay)
	service := NewBookingService(
		repo,
		cache.NewLocker(guard, cache.DefaultLockTTL),
		cache.NewRedisCache(guard, cache.DefaultBookingTTL, time.Minute),
		nil,
	)
	return mr, repo, service
}

func TestBookingService_ConcurrentDepartAppendsOnce(t *testing.T) {
	_, repo, service := setupRedisService(t, 20*time.Millisecond)
	ctx := context.Background()

	created, err := service.CreateBooking(ctx, CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: 5})
	require.NoError(t, err)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		kinds     = make(map[domain.ErrorKind]int)
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := service.Transition(ctx, created.RefID, domain.ActionDepart, domain.TransitionPayload{Location: "DEL"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			kinds[domain.KindOf(err)]++
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, kinds[domain.KindLockContention]+kinds[domain.KindInvalidTransition])

	stored, err := repo.FindByRefID(ctx, created.RefID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusDeparted, stored.Status)
	departed := 0
	for _, e := range stored.Events {
		if e.Type == domain.BookingStatusDeparted {
			departed++
		}
	}
	assert.Equal(t, 1, departed)
}

func TestBookingService_FailOpenWithoutRedis(t *testing.T) {
	mr, _, service := setupRedisService(t, 0)
	ctx := context.Background()

	created, err := service.CreateBooking(ctx, CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: 5})
	require.NoError(t, err)

	mr.Close()

	booking, err := service.Transition(ctx, created.RefID, domain.ActionDepart, domain.TransitionPayload{Location: "DEL"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusDeparted, booking.Status)

	view, err := service.GetHistory(ctx, created.RefID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusDeparted, view.Status)
}

func TestBookingService_HistoryReflectsTransitions(t *testing.T) {
	mr, _, service := setupRedisService(t, 0)
	ctx := context.Background()

	created, err := service.CreateBooking(ctx, CreateBookingInput{Origin: "DEL", Destination: "BLR", Pieces: 1, WeightKg: 5})
	require.NoError(t, err)

	first, err := service.GetHistory(ctx, created.RefID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusBooked, first.Status)
	assert.True(t, mr.Exists(cache.BookingKey(created.RefID)))

	again, err := service.GetHistory(ctx, created.RefID)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = service.Transition(ctx, created.RefID, domain.ActionDepart, domain.TransitionPayload{Location: "DEL"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.BookingKey(created.RefID)))

	after, err := service.GetHistory(ctx, created.RefID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusDeparted, after.Status)
	assert.Len(t, after.Events, 2)
}
