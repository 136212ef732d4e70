package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicdesk/database"
	"civicdesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoAppointmentRepo implements AppointmentRepository using MongoDB.
// Booking transactions need a replica set or sharded cluster.
type MongoAppointmentRepo struct {
	client           *mongo.Client
	appointmentsColl *mongo.Collection
	guardsColl       *mongo.Collection
	locksColl        *mongo.Collection
	logger           *zap.Logger
	lockTTL          time.Duration
}

// NewMongoAppointmentRepo constructs a new instance of MongoAppointmentRepo.
func NewMongoAppointmentRepo(db *mongo.Database, logger *zap.Logger) *MongoAppointmentRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoAppointmentRepo{
		client:           db.Client(),
		appointmentsColl: db.Collection(database.AppointmentsCollection),
		guardsColl:       db.Collection(database.SlotGuardsCollection),
		locksColl:        db.Collection(database.ScheduleLocksCollection),
		logger:           logger,
		lockTTL:          10 * time.Minute,
	}
}

func activeSlotFilter(key models.SlotKey) bson.M {
	return bson.M{
		"organization_id": key.OrganizationID,
		"date":            key.Date,
		"slot_start":      key.SlotStart,
		"slot_end":        key.SlotEnd,
		"status":          bson.M{"$ne": models.StatusCancelled},
	}
}

func (r *MongoAppointmentRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Appointment, error) {
	cursor, err := r.appointmentsColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, database.Classify(fmt.Errorf("error querying appointments: %w", err))
	}
	defer cursor.Close(ctx)

	appointments := []models.Appointment{}
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, database.Classify(fmt.Errorf("error decoding appointments: %w", err))
	}
	return appointments, nil
}

// ListDay returns every appointment of the organization on date in creation order.
func (r *MongoAppointmentRepo) ListDay(ctx context.Context, organizationID, date string) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})
	return r.find(ctx, bson.M{"organization_id": organizationID, "date": date}, opts)
}

// GetByID retrieves an appointment by its ID.
func (r *MongoAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var apt models.Appointment
	if err := r.appointmentsColl.FindOne(ctx, bson.M{"id": id}).Decode(&apt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", models.ErrAppointmentNotFound, id)
		}
		return nil, database.Classify(fmt.Errorf("error fetching appointment %s: %w", id, err))
	}
	return &apt, nil
}

// ListByCitizen returns a citizen's appointments, most recent date first.
func (r *MongoAppointmentRepo) ListByCitizen(ctx context.Context, citizenID string) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "slot_start", Value: -1}})
	return r.find(ctx, bson.M{"citizen_id": citizenID}, opts)
}

// Query returns the organization's appointments between two dates inclusive.
func (r *MongoAppointmentRepo) Query(ctx context.Context, organizationID, startDate, endDate string) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"organization_id": organizationID,
		"date":            bson.M{"$gte": startDate, "$lte": endDate},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "slot_start", Value: 1}, {Key: "created_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

// UpdateStatus is a compare-and-set on the current status.
func (r *MongoAppointmentRepo) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Appointment
	err := r.appointmentsColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.Classify(fmt.Errorf("error updating status of %s: %w", id, err))
	}
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: appointment %s is %s, not %s", models.ErrInvalidTransition, id, current.Status, from)
}

// ListOrganizationsWithUnassigned returns organizations holding pending
// appointments without an agent on date.
func (r *MongoAppointmentRepo) ListOrganizationsWithUnassigned(ctx context.Context, date string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"date":     date,
		"agent_id": bson.M{"$in": bson.A{nil, ""}},
		"status":   bson.M{"$in": bson.A{models.StatusScheduled, models.StatusConfirmed}},
	}
	values, err := r.appointmentsColl.Distinct(ctx, "organization_id", filter)
	if err != nil {
		return nil, database.Classify(fmt.Errorf("error listing organizations with unassigned appointments: %w", err))
	}
	orgs := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			orgs = append(orgs, s)
		}
	}
	return orgs, nil
}
