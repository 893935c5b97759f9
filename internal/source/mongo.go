package source

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codedeck/mailer/internal/config"
	"github.com/codedeck/mailer/internal/model"
)

const mongoSelectionTimeout = 10 * time.Second

// MongoSource reads recipients from a MongoDB collection. The email and
// name field names and the query filter are configurable, so any existing
// user collection can feed a campaign without reshaping its documents.
type MongoSource struct {
	cfg config.MongoConfig
}

// NewMongoSource creates a new MongoSource
func NewMongoSource(cfg config.MongoConfig) *MongoSource {
	return &MongoSource{cfg: cfg}
}

// Name identifies the source in logs
func (m *MongoSource) Name() string {
	return "mongodb"
}

// Fetch connects, runs the configured filter and returns the valid
// recipients found. The connection is closed before returning.
func (m *MongoSource) Fetch(ctx context.Context) ([]model.Recipient, error) {
	filter := bson.M{}
	if m.cfg.Filter != "" {
		if err := bson.UnmarshalExtJSON([]byte(m.cfg.Filter), true, &filter); err != nil {
			return nil, fmt.Errorf("invalid mongodb filter: %w", err)
		}
	}

	clientOpts := options.Client().
		ApplyURI(m.cfg.URI).
		SetServerSelectionTimeout(mongoSelectionTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	coll := client.Database(m.cfg.Database).Collection(m.cfg.Collection)
	projection := bson.M{m.cfg.EmailField: 1, m.cfg.NameField: 1}

	cur, err := coll.Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s.%s: %w", m.cfg.Database, m.cfg.Collection, err)
	}
	defer cur.Close(ctx)

	seen := make(map[string]struct{})
	var recipients []model.Recipient
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}

		raw, ok := doc[m.cfg.EmailField].(string)
		if !ok {
			continue
		}
		email := model.NormalizeEmail(raw)
		if !model.ValidEmail(email) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		name, _ := doc[m.cfg.NameField].(string)
		recipients = append(recipients, model.Recipient{
			Email:     email,
			FirstName: model.FirstName(name),
			Source:    model.SourceMongo,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error reading %s.%s: %w", m.cfg.Database, m.cfg.Collection, err)
	}
	return recipients, nil
}
