package organizationRepo

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
)

// MongoOrganizationRepo implements OrganizationRepository using MongoDB.
type MongoOrganizationRepo struct {
	servicesColl  *mongo.Collection
	calendarsColl *mongo.Collection
}

// NewMongoOrganizationRepo constructs a new instance of MongoOrganizationRepo.
func NewMongoOrganizationRepo(db *mongo.Database) *MongoOrganizationRepo {
	return &MongoOrganizationRepo{
		servicesColl:  db.Collection(database.ServiceConfigsCollection),
		calendarsColl: db.Collection(database.WorkingCalendarsCollection),
	}
}

// EnsureIndexes creates the lookup indexes for both collections.
func (r *MongoOrganizationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.servicesColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "service_type", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_org_service"),
	})
	if err != nil {
		return fmt.Errorf("failed to create service config indexes: %w", err)
	}
	_, err = r.calendarsColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "organization_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_org"),
	})
	if err != nil {
		return fmt.Errorf("failed to create calendar indexes: %w", err)
	}
	return nil
}

// GetServiceConfig loads and validates one service configuration.
func (r *MongoOrganizationRepo) GetServiceConfig(ctx context.Context, organizationID, serviceType string) (*models.ServiceConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cfg models.ServiceConfig
	filter := bson.M{"organization_id": organizationID, "service_type": serviceType}
	if err := r.servicesColl.FindOne(ctx, filter).Decode(&cfg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s has no service %s", models.ErrServiceUnavailable, organizationID, serviceType)
		}
		return nil, database.Classify(fmt.Errorf("error fetching service config %s/%s: %w", organizationID, serviceType, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stored service config %s/%s: %w", organizationID, serviceType, err)
	}
	return &cfg, nil
}

// SaveServiceConfig validates and upserts a service configuration.
func (r *MongoOrganizationRepo) SaveServiceConfig(ctx context.Context, cfg *models.ServiceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg.UpdatedAt = time.Now().UTC()
	filter := bson.M{"organization_id": cfg.OrganizationID, "service_type": cfg.ServiceType}
	_, err := r.servicesColl.ReplaceOne(ctx, filter, cfg, options.Replace().SetUpsert(true))
	if err != nil {
		return database.Classify(fmt.Errorf("error saving service config: %w", err))
	}
	return nil
}

// GetCalendar loads and validates an organization's working calendar.
func (r *MongoOrganizationRepo) GetCalendar(ctx context.Context, organizationID string) (*models.WorkingCalendar, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cal models.WorkingCalendar
	if err := r.calendarsColl.FindOne(ctx, bson.M{"organization_id": organizationID}).Decode(&cal); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: organization %s", models.ErrScheduleNotConfigured, organizationID)
		}
		return nil, database.Classify(fmt.Errorf("error fetching calendar for %s: %w", organizationID, err))
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("stored calendar for %s: %w", organizationID, err)
	}
	return &cal, nil
}

// SaveCalendar validates and upserts a working calendar.
func (r *MongoOrganizationRepo) SaveCalendar(ctx context.Context, cal *models.WorkingCalendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cal.UpdatedAt = time.Now().UTC()
	_, err := r.calendarsColl.ReplaceOne(ctx, bson.M{"organization_id": cal.OrganizationID}, cal, options.Replace().SetUpsert(true))
	if err != nil {
		return database.Classify(fmt.Errorf("error saving calendar: %w", err))
	}
	return nil
}
