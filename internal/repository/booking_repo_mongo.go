package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/cargobooking/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const bookingsCollection = "bookings"

type MongoBookingRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewMongoBookingRepository(db *mongo.Database) *MongoBookingRepository {
	return &MongoBookingRepository{db: db, coll: db.Collection(bookingsCollection)}
}

// ConnectMongo dials and pings the deployment.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique ref_id index and the listing index.
func (r *MongoBookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ref_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create booking indexes: %w", err)
	}
	return nil
}

func (r *MongoBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	now := domain.NewEventTime()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.FlightIDs = flightIDs(booking.FlightIDs)

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateRefID
		}
		return fmt.Errorf("insert booking %s: %w", booking.RefID, err)
	}
	return nil
}

func (r *MongoBookingRepository) FindByRefID(ctx context.Context, refID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.coll.FindOne(ctx, bson.D{{Key: "ref_id", Value: refID}}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find booking %s: %w", refID, err)
	}
	normalize(&b)
	return &b, nil
}

func (r *MongoBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	updatedAt := domain.NewEventTime()
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "ref_id", Value: booking.RefID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: booking.Status},
			{Key: "flightIds", Value: flightIDs(booking.FlightIDs)},
			{Key: "events", Value: booking.Events},
			{Key: "updatedAt", Value: updatedAt},
		}}},
	)
	if err != nil {
		return fmt.Errorf("save booking %s: %w", booking.RefID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	booking.UpdatedAt = updatedAt
	return nil
}

func (r *MongoBookingRepository) FindPage(ctx context.Context, limit, skip int) ([]domain.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)).
		SetProjection(bson.D{
			{Key: "ref_id", Value: 1},
			{Key: "origin", Value: 1},
			{Key: "destination", Value: 1},
			{Key: "status", Value: 1},
			{Key: "pieces", Value: 1},
			{Key: "weight_kg", Value: 1},
			{Key: "createdAt", Value: 1},
		})

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer cur.Close(ctx)

	bookings := make([]domain.Booking, 0, limit)
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	for i := range bookings {
		normalize(&bookings[i])
	}
	return bookings, nil
}

func (r *MongoBookingRepository) Count(ctx context.Context) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return total, nil
}

func (r *MongoBookingRepository) Delete(ctx context.Context, refID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "ref_id", Value: refID}})
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", refID, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoBookingRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

// BSON dates come back in the local zone.
func normalize(b *domain.Booking) {
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	for i := range b.Events {
		b.Events[i].Timestamp = b.Events[i].Timestamp.UTC()
	}
	if b.Events == nil {
		b.Events = []domain.Event{}
	}
	b.FlightIDs = flightIDs(b.FlightIDs)
}

var _ BookingRepository = (*MongoBookingRepository)(nil)
