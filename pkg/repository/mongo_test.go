package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewAuditEntry(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	at := time.Date(2024, 5, 1, 14, 0, 0, 0, berlin)

	entry := newAuditEntry(ActionOrderCommitted, "ord-1", "owner-key", map[string]interface{}{"gross": "165.00"}, at)
	assert.Equal(t, ActionOrderCommitted, entry.Action)
	assert.Equal(t, "ord-1", entry.EntityID)
	assert.Equal(t, "owner-key", entry.OwnerKey)
	assert.Equal(t, bson.M{"gross": "165.00"}, entry.Data)
	assert.Equal(t, time.UTC, entry.CreatedAt.Location())
	assert.True(t, entry.CreatedAt.Equal(at))

	guest := newAuditEntry(ActionProductDeleted, "p-1", "", nil, at)
	assert.Empty(t, guest.OwnerKey)
	assert.Nil(t, guest.Data)

	raw, err := bson.Marshal(guest)
	assert.NoError(t, err)
	var doc bson.M
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	assert.NotContains(t, doc, "owner_key")
	assert.NotContains(t, doc, "data")
	assert.NotContains(t, doc, "_id")
	assert.Equal(t, "product.deleted", doc["action"])
}
