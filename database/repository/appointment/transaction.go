package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicdesk/database"
	"civicdesk/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// transactionTimeout bounds a transaction including the driver's own
// retries of transient commit failures.
const transactionTimeout = 15 * time.Second

// GuardID is the _id of the slot guard document for key.
func GuardID(key models.SlotKey) string {
	return fmt.Sprintf("%s|%s|%d|%d", key.OrganizationID, key.Date, key.SlotStart, key.SlotEnd)
}

// DayLockID is the _id of the optimizer lock document for an organization-day.
func DayLockID(organizationID, date string) string {
	return fmt.Sprintf("optimize:%s:%s", organizationID, date)
}

func transactionOptions() *options.TransactionOptions {
	return options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
}

// ensureGuard creates the guard document outside any transaction so that
// concurrent transactions only ever update it.
func (r *MongoAppointmentRepo) ensureGuard(ctx context.Context, key models.SlotKey) error {
	_, err := r.guardsColl.UpdateOne(ctx,
		bson.M{"_id": GuardID(key)},
		bson.M{"$setOnInsert": bson.M{
			"organization_id": key.OrganizationID,
			"date":            key.Date,
			"slot_start":      key.SlotStart,
			"slot_end":        key.SlotEnd,
			"version":         0,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return database.Classify(fmt.Errorf("failed to prepare slot guard: %w", err))
	}
	return nil
}

// touchGuard bumps the guard version. Two transactions touching the same
// guard cannot both commit; the loser gets a write conflict and is retried
// by WithTransaction against a fresh snapshot.
func (r *MongoAppointmentRepo) touchGuard(ctx context.Context, key models.SlotKey) error {
	_, err := r.guardsColl.UpdateOne(ctx,
		bson.M{"_id": GuardID(key)},
		bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"touched_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// WithSlotTransaction runs fn inside a multi-document transaction that
// holds the slot guard for key.
func (r *MongoAppointmentRepo) WithSlotTransaction(ctx context.Context, key models.SlotKey, fn func(ctx context.Context, ledger SlotLedger) error) error {
	ctx, cancel := context.WithTimeout(ctx, transactionTimeout)
	defer cancel()

	if err := r.ensureGuard(ctx, key); err != nil {
		return err
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return database.Classify(fmt.Errorf("could not start mongo session: %w", err))
	}
	defer sess.EndSession(ctx)

	attempts := 0
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		attempts++
		if err := r.touchGuard(sc, key); err != nil {
			return nil, err
		}
		return nil, fn(sc, &mongoSlotLedger{repo: r})
	}, transactionOptions())
	if attempts > 1 {
		r.logger.Debug("slot transaction retried",
			zap.String("slot", GuardID(key)), zap.Int("attempts", attempts))
	}
	if err != nil {
		return database.Classify(err)
	}
	return nil
}

type mongoSlotLedger struct {
	repo *MongoAppointmentRepo
}

func (l *mongoSlotLedger) CountActive(ctx context.Context, key models.SlotKey, agentID string) (int, error) {
	filter := activeSlotFilter(key)
	if agentID != "" {
		filter["agent_id"] = agentID
	}
	n, err := l.repo.appointmentsColl.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count active appointments: %w", err)
	}
	return int(n), nil
}

func (l *mongoSlotLedger) Create(ctx context.Context, apt *models.Appointment) error {
	if _, err := l.repo.appointmentsColl.InsertOne(ctx, apt); err != nil {
		return fmt.Errorf("insert appointment failed: %w", err)
	}
	return nil
}

// acquireDayLock claims the advisory optimizer lock. The filter only matches
// an expired lock, so a live one makes the upsert collide on _id.
func (r *MongoAppointmentRepo) acquireDayLock(ctx context.Context, organizationID, date, owner string) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": DayLockID(organizationID, date), "expires_at": bson.M{"$lt": now}}
	update := bson.M{"$set": bson.M{
		"owner":       owner,
		"acquired_at": now,
		"expires_at":  now.Add(r.lockTTL),
	}}
	_, err := r.locksColl.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s on %s", models.ErrOptimizationInProgress, organizationID, date)
		}
		return database.Classify(fmt.Errorf("failed to acquire optimizer lock: %w", err))
	}
	return nil
}

func (r *MongoAppointmentRepo) releaseDayLock(organizationID, date, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.locksColl.DeleteOne(ctx, bson.M{"_id": DayLockID(organizationID, date), "owner": owner})
	if err != nil {
		r.logger.Warn("failed to release optimizer lock; it will expire",
			zap.String("organizationId", organizationID), zap.String("date", date), zap.Error(err))
	}
}

// WithDayLock holds the optimizer lock for (organizationID, date) and runs
// fn in a transaction. fn may be invoked again if the transaction is retried.
func (r *MongoAppointmentRepo) WithDayLock(ctx context.Context, organizationID, date string, fn func(ctx context.Context, ledger DayLedger) error) error {
	owner := uuid.New().String()
	if err := r.acquireDayLock(ctx, organizationID, date, owner); err != nil {
		return err
	}
	defer r.releaseDayLock(organizationID, date, owner)

	ctx, cancel := context.WithTimeout(ctx, r.lockTTL)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return database.Classify(fmt.Errorf("could not start mongo session: %w", err))
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoDayLedger{repo: r})
	}, transactionOptions())
	if err != nil {
		return database.Classify(err)
	}
	return nil
}

type mongoDayLedger struct {
	repo *MongoAppointmentRepo
}

func (l *mongoDayLedger) ListDay(ctx context.Context, organizationID, date string) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})
	return l.repo.find(ctx, bson.M{"organization_id": organizationID, "date": date}, opts)
}

// UpdateAgent assigns an agent to a still-unassigned appointment. Touching
// the slot guard makes concurrent bookings of that slot conflict with the pass.
func (l *mongoDayLedger) UpdateAgent(ctx context.Context, apt models.Appointment, agentID string) error {
	if mongo.SessionFromContext(ctx) == nil {
		return errors.New("UpdateAgent must run inside WithDayLock")
	}
	if err := l.repo.touchGuard(ctx, apt.SlotKey()); err != nil {
		return err
	}
	filter := bson.M{
		"id":       apt.ID,
		"agent_id": bson.M{"$in": bson.A{nil, ""}},
		"status":   bson.M{"$ne": models.StatusCancelled},
	}
	update := bson.M{"$set": bson.M{"agent_id": agentID, "updated_at": time.Now().UTC()}}
	res, err := l.repo.appointmentsColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("assign agent to %s: %w", apt.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: appointment %s is no longer unassigned", models.ErrSlotConflict, apt.ID)
	}
	return nil
}
