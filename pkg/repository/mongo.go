package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/hottubshop/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditAction names an audited shop event.
type AuditAction string

const (
	ActionProductCreated AuditAction = "product.created"
	ActionProductUpdated AuditAction = "product.updated"
	ActionProductDeleted AuditAction = "product.deleted"
	ActionGroupRequired  AuditAction = "group.required"
	ActionOptionCreated  AuditAction = "option.created"
	ActionOptionUpdated  AuditAction = "option.updated"
	ActionOptionDeleted  AuditAction = "option.deleted"
	ActionOrderCommitted AuditAction = "order.committed"
)

// AuditRepository writes the audit trail of catalog edits and submitted orders to MongoDB.
type AuditRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewAuditRepository(cfg *config.MongoDBConfig) (*AuditRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit store: %w", err)
	}

	return &AuditRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (m *AuditRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *AuditRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AuditEntry is one audit trail entry. EntityID is a product, option or order id.
// OwnerKey is the hashed owner key of the acting identity and stays empty for guests.
type AuditEntry struct {
	ID        string      `bson:"_id,omitempty" json:"id,omitempty"`
	Action    AuditAction `bson:"action" json:"action"`
	EntityID  string      `bson:"entity_id" json:"entityId"`
	OwnerKey  string      `bson:"owner_key,omitempty" json:"ownerKey,omitempty"`
	Data      bson.M      `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time   `bson:"created_at" json:"createdAt"`
}

func newAuditEntry(action AuditAction, entityID, ownerKey string, data map[string]interface{}, now time.Time) *AuditEntry {
	entry := &AuditEntry{
		Action:    action,
		EntityID:  entityID,
		OwnerKey:  ownerKey,
		CreatedAt: now.UTC(),
	}
	if len(data) > 0 {
		entry.Data = bson.M(data)
	}
	return entry
}

// Record stores one entry for entityID.
func (m *AuditRepository) Record(ctx context.Context, action AuditAction, entityID, ownerKey string, data map[string]interface{}) error {
	if action == "" || entityID == "" {
		return fmt.Errorf("audit entry needs an action and an entity id")
	}
	_, err := m.collection.InsertOne(ctx, newAuditEntry(action, entityID, ownerKey, data, time.Now()))
	return err
}

// Trail returns the newest entries of entityID, at most limit of them.
func (m *AuditRepository) Trail(ctx context.Context, entityID string, limit int64) ([]*AuditEntry, error) {
	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []*AuditEntry{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
