package agentRepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"civicdesk/database"
	"civicdesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAgentRepo implements AgentRepository using MongoDB.
type MongoAgentRepo struct {
	coll *mongo.Collection
}

// NewMongoAgentRepo constructs a new instance of MongoAgentRepo.
func NewMongoAgentRepo(db *mongo.Database) *MongoAgentRepo {
	return &MongoAgentRepo{coll: db.Collection(database.AgentsCollection)}
}

// EnsureIndexes creates the necessary indexes on the agents collection.
func (r *MongoAgentRepo) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// Primary lookup: active agents of an organization for a service type.
		{
			Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "eligible_service_types", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("org_service_active_idx"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create agent indexes: %w", err)
	}
	return nil
}

// ListEligible queries candidates and applies the eligibility rules in Go so
// every store agrees on them.
func (r *MongoAgentRepo) ListEligible(ctx context.Context, organizationID, serviceType, date, agentID string) ([]models.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"organization_id":        organizationID,
		"eligible_service_types": serviceType,
		"is_active":              true,
		"absences":               bson.M{"$ne": date},
	}
	if agentID != "" {
		filter["id"] = agentID
	}
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, database.Classify(fmt.Errorf("error listing agents: %w", err))
	}
	defer cursor.Close(ctx)

	var found []models.Agent
	if err := cursor.All(ctx, &found); err != nil {
		return nil, database.Classify(fmt.Errorf("error decoding agents: %w", err))
	}
	return FilterEligible(found, serviceType, date, agentID), nil
}

// SaveAgent upserts an agent by id.
func (r *MongoAgentRepo) SaveAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == "" || agent.OrganizationID == "" {
		return fmt.Errorf("%w: agent id and organization are required", models.ErrInvalidRequest)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	agent.UpdatedAt = time.Now().UTC()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": agent.ID}, agent, options.Replace().SetUpsert(true))
	if err != nil {
		return database.Classify(fmt.Errorf("error saving agent %s: %w", agent.ID, err))
	}
	return nil
}

// FilterEligible keeps agents who can serve serviceType on date and returns
// them in directory order (rank, then id).
func FilterEligible(agents []models.Agent, serviceType, date, agentID string) []models.Agent {
	out := make([]models.Agent, 0, len(agents))
	for _, a := range agents {
		if agentID != "" && a.ID != agentID {
			continue
		}
		if a.CanServe(serviceType) && a.WorksOn(date) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	return out
}
