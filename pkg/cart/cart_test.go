package cart

import (
	"context"
	"testing"

	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/repository"
	"github.com/example/hottubshop/pkg/session"
	"github.com/example/hottubshop/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *Service
	fs       afero.Fs
	sessions *session.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	repo := repository.NewCartRepository(storage.New(fs), zap.NewNop())
	return &fixture{
		svc:      NewService(repo, zap.NewNop()),
		fs:       fs,
		sessions: session.NewMemoryStore(),
	}
}

func item(id string, base int64) models.CartItem {
	return models.CartItem{ProductID: id, ProductName: id, BasePrice: decimal.NewFromInt(base)}
}

func ids(items []models.CartItem) []string {
	out := []string{}
	for _, it := range items {
		out = append(out, it.ProductID)
	}
	return out
}

func TestGuestCartLivesInSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := Owner{Session: f.sessions.Open("sid-1")}

	require.NoError(t, f.svc.Add(ctx, guest, item("a", 100)))
	require.NoError(t, f.svc.Add(ctx, guest, item("b", 50)))

	got, err := f.svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	raw, ok, err := guest.Session.Get(ctx, session.CartKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, raw, "\"productId\":\"a\"")

	exists, err := afero.DirExists(f.fs, "carts")
	require.NoError(t, err)
	assert.False(t, exists, "guest carts are never written to disk")
}

func TestRemoveAtOutOfRangeIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := Owner{UserID: "user-1", Session: f.sessions.Open("sid-1")}

	require.NoError(t, f.svc.SaveCart(ctx, owner, []models.CartItem{item("a", 1), item("b", 2), item("c", 3)}))

	for _, idx := range []int{-1, 3, 100} {
		require.NoError(t, f.svc.RemoveAt(ctx, owner, idx))
	}
	got, err := f.svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))

	require.NoError(t, f.svc.RemoveAt(ctx, owner, 1))
	got, err = f.svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(got))
}

func TestGuestCartMigratesOnceOnSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.sessions.Open("sid-1")
	guest := Owner{Session: sess}
	member := Owner{UserID: "user-1", Session: sess}

	require.NoError(t, f.svc.Add(ctx, guest, item("a", 100)))
	require.NoError(t, f.svc.Add(ctx, guest, item("b", 50)))

	got, err := f.svc.GetCart(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	guestNow, err := f.svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, guestNow)

	exists, err := afero.Exists(f.fs, "carts/"+models.OwnerKey("user-1")+".json")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, f.svc.Add(ctx, guest, item("z", 1)))
	got, err = f.svc.GetCart(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got), "second access must not migrate again")
}

func TestNoMigrationWhenIdentityCartExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.sessions.Open("sid-1")
	member := Owner{UserID: "user-1", Session: sess}

	require.NoError(t, f.svc.SaveCart(ctx, member, []models.CartItem{item("kept", 1)}))
	require.NoError(t, f.svc.SaveCart(ctx, Owner{Session: sess}, []models.CartItem{item("guest", 1)}))

	got, err := f.svc.GetCart(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, ids(got))
}

func TestEmptyGuestCartDoesNotCreateIdentityFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := Owner{UserID: "user-1", Session: f.sessions.Open("sid-1")}

	got, err := f.svc.GetCart(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, got)

	exists, err := afero.Exists(f.fs, "carts/"+models.OwnerKey("user-1")+".json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCartsAreNotSharedAcrossIdentities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Add(ctx, Owner{UserID: "user-1"}, item("a", 1)))
	got, err := f.svc.GetCart(ctx, Owner{UserID: "user-2"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.sessions.Open("sid-1")

	for _, owner := range []Owner{{Session: sess}, {UserID: "user-1"}} {
		require.NoError(t, f.svc.Add(ctx, owner, item("a", 1)))
		require.NoError(t, f.svc.Clear(ctx, owner))
		got, err := f.svc.GetCart(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestGuestWithoutSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.GetCart(ctx, Owner{})
	require.NoError(t, err)
	assert.Empty(t, got)

	err = f.svc.Add(ctx, Owner{}, item("a", 1))
	assert.ErrorIs(t, err, models.ErrPersistenceUnavailable)
}

func TestUnreadableGuestCartIsDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.sessions.Open("sid-1")
	require.NoError(t, sess.Set(ctx, session.CartKey, "{broken"))

	got, err := f.svc.GetCart(ctx, Owner{Session: sess})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCorruptIdentityCartReadsAsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.sessions.Open("sid-1")
	member := Owner{UserID: "u1", Session: sess}
	path := "carts/" + models.OwnerKey("u1") + ".json"
	require.NoError(t, afero.WriteFile(f.fs, path, []byte("[{"), 0o644))
	require.NoError(t, f.svc.SaveCart(ctx, Owner{Session: sess}, []models.CartItem{item("guest", 1)}))

	got, err := f.svc.GetCart(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, got)

	raw, err := afero.ReadFile(f.fs, path)
	require.NoError(t, err)
	assert.Equal(t, "[{", string(raw), "guest cart must not be migrated over the unreadable file")

	require.NoError(t, f.svc.Add(ctx, member, item("a", 100)))
	got, err = f.svc.GetCart(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}
