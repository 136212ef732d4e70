// FILE: database/repository/appointment/indexes.go
package appointmentRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes of the appointment, guard and lock collections.
func (r *MongoAppointmentRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "appointment_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_appointment_number"),
		},
		// Slot key lookups made inside booking transactions.
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "slot_start", Value: 1},
				{Key: "slot_end", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("org_date_slot_status_idx"),
		},
		{
			Keys:    bson.D{{Key: "citizen_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("citizen_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "agent_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("date_agent_status_idx"),
		},
	}
	if _, err := r.appointmentsColl.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create appointment indexes: %w", err)
	}

	// Expired optimizer locks are reaped by the server.
	_, err := r.locksColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	})
	if err != nil {
		return fmt.Errorf("failed to create schedule lock indexes: %w", err)
	}
	return nil
}
