package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// MongoStore keeps per-run pipeline artifacts for debugging and audit.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("pipeline_runs")}
}

// InsertRun stores the artifacts of one pipeline run.
func (s *MongoStore) InsertRun(ctx context.Context, art *models.RunArtifacts) error {
	if art.CreatedAt.IsZero() {
		art.CreatedAt = time.Now()
	}
	if _, err := s.col.InsertOne(ctx, art); err != nil {
		return fmt.Errorf("mongo insert run: %w", err)
	}
	return nil
}

// GetRunByClient returns the most recent run for a client id.
func (s *MongoStore) GetRunByClient(ctx context.Context, clientID string) (*models.RunArtifacts, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var art models.RunArtifacts
	if err := s.col.FindOne(ctx, bson.M{"client_id": clientID}, opts).Decode(&art); err != nil {
		return nil, err
	}
	return &art, nil
}

// ListRecentRuns returns up to limit runs, newest first.
func (s *MongoStore) ListRecentRuns(ctx context.Context, limit int64) ([]models.RunArtifacts, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var runs []models.RunArtifacts
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
