package organizationRepo

import (
	"context"
	"testing"
	"time"

	"civicdesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoOrganizationRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("service config found", func(mt *mtest.T) {
		repo := NewMongoOrganizationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "civicdesk.service_configs", mtest.FirstBatch, bson.D{
			{Key: "organization_id", Value: "mairie-01"},
			{Key: "service_type", Value: "CNI"},
			{Key: "duration_minutes", Value: 30},
			{Key: "buffer_minutes", Value: 5},
			{Key: "max_concurrent_per_slot", Value: 3},
			{Key: "auto_assign", Value: true},
			{Key: "is_active", Value: true},
		}))

		cfg, err := repo.GetServiceConfig(context.Background(), "mairie-01", "CNI")
		require.NoError(mt, err)
		assert.Equal(mt, 35, cfg.SlotLength())
		assert.Equal(mt, 3, cfg.MaxConcurrentPerSlot)
		assert.True(mt, cfg.AutoAssign)
	})

	mt.Run("service config missing", func(mt *mtest.T) {
		repo := NewMongoOrganizationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "civicdesk.service_configs", mtest.FirstBatch))

		_, err := repo.GetServiceConfig(context.Background(), "mairie-01", "PASSPORT")
		assert.ErrorIs(mt, err, models.ErrServiceUnavailable)
	})

	mt.Run("stored config that violates invariants is rejected", func(mt *mtest.T) {
		repo := NewMongoOrganizationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "civicdesk.service_configs", mtest.FirstBatch, bson.D{
			{Key: "organization_id", Value: "mairie-01"},
			{Key: "service_type", Value: "CNI"},
			{Key: "duration_minutes", Value: 0},
			{Key: "max_concurrent_per_slot", Value: 3},
		}))

		_, err := repo.GetServiceConfig(context.Background(), "mairie-01", "CNI")
		assert.ErrorIs(mt, err, models.ErrInvalidConfig)
	})

	mt.Run("save validates before writing", func(mt *mtest.T) {
		repo := NewMongoOrganizationRepo(mt.DB)
		err := repo.SaveServiceConfig(context.Background(), &models.ServiceConfig{
			OrganizationID: "mairie-01", ServiceType: "CNI", DurationMinutes: 30, MaxConcurrentPerSlot: 0,
		})
		assert.ErrorIs(mt, err, models.ErrInvalidConfig)
	})

	mt.Run("save upserts", func(mt *mtest.T) {
		repo := NewMongoOrganizationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		cfg := &models.ServiceConfig{OrganizationID: "mairie-01", ServiceType: "CNI", DurationMinutes: 30, MaxConcurrentPerSlot: 3}
		require.NoError(mt, repo.SaveServiceConfig(context.Background(), cfg))
		assert.False(mt, cfg.UpdatedAt.IsZero())
	})

	mt.Run("calendar decodes weekday keys", func(mt *mtest.T) {
		repo := NewMongoOrganizationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "civicdesk.working_calendars", mtest.FirstBatch, bson.D{
			{Key: "organization_id", Value: "mairie-01"},
			{Key: "weekly", Value: bson.D{
				{Key: "1", Value: bson.D{
					{Key: "open", Value: 480},
					{Key: "close", Value: 960},
					{Key: "breaks", Value: bson.A{bson.D{{Key: "start", Value: 720}, {Key: "end", Value: 780}}}},
				}},
			}},
			{Key: "holidays", Value: bson.A{"2025-07-14"}},
		}))

		cal, err := repo.GetCalendar(context.Background(), "mairie-01")
		require.NoError(mt, err)
		monday, ok := cal.Weekly[time.Monday]
		require.True(mt, ok)
		assert.Equal(mt, 480, monday.Open)
		assert.Equal(mt, 960, monday.Close)
		assert.Len(mt, monday.Breaks, 1)
		assert.True(mt, cal.IsHoliday("2025-07-14"))
	})

	mt.Run("calendar missing", func(mt *mtest.T) {
		repo := NewMongoOrganizationRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "civicdesk.working_calendars", mtest.FirstBatch))

		_, err := repo.GetCalendar(context.Background(), "mairie-01")
		assert.ErrorIs(mt, err, models.ErrScheduleNotConfigured)
	})
}
