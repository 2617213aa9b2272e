//go:build integration

package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/internal/verification/trust"
	id "trustgate/pkg/domain"
	"trustgate/pkg/testutil/containers"
)

func realRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(context.Background()))
	return NewRedisCache(rc.Client, time.Minute)
}

func TestRedisCacheIntegration(t *testing.T) {
	exerciseCache(t, realRedisCache(t))
}

func TestRedisCacheIntegration_GateTracksStoreGeneration(t *testing.T) {
	cache := realRedisCache(t)
	ctx := context.Background()
	docs := store.NewInMemoryStore()
	owner := id.NewAccountID()
	svc := New(docs, WithCache(cache))

	g, err := svc.GateFor(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, trust.FromCount(0), g)
	_, ok, err := cache.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)

	doc, err := models.NewDocument(id.NewDocumentID(), owner, models.CategoryTaxCompliance, "ref", time.Now())
	require.NoError(t, err)
	require.NoError(t, docs.Create(ctx, doc))
	_, err = docs.CompleteReview(ctx, doc.ID, models.DecisionVerified, id.NewAccountID(), "", time.Now())
	require.NoError(t, err)

	// No Invalidate: the entry still sits in Redis under the old generation.
	g, err = svc.GateFor(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, g.VerifiedCount)
}
