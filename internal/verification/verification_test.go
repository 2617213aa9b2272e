package verification

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustgate/internal/verification/adapters"
	"trustgate/internal/verification/gate"
	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	id "trustgate/pkg/domain"
	audit "trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/audit/publisher"
	auditmemory "trustgate/pkg/platform/audit/store/memory"
)

func TestModule_ReviewInvalidatesGate(t *testing.T) {
	ctx := context.Background()
	owner := id.NewAccountID()
	reviewer := id.NewAccountID()
	auditStore := auditmemory.NewInMemoryStore()

	m := New(Deps{
		Store:        store.NewInMemoryStore(),
		Directory:    adapters.NewInMemoryDirectory(),
		Capabilities: adapters.NewAllowlistChecker(reviewer),
		Audit:        publisher.New(auditStore),
		Metrics:      metrics.NewWith(prometheus.NewRegistry()),
	})

	doc, err := m.Registry.Submit(ctx, owner, models.CategoryBusinessLicense, "s3://license.pdf")
	require.NoError(t, err)

	before, err := m.Gate.GateFor(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, before.Score)

	_, err = m.Review.Review(ctx, doc.ID, models.DecisionVerified, reviewer, "")
	require.NoError(t, err)

	after, err := m.Gate.GateFor(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 14, after.Score)
	assert.Equal(t, 1, after.VerifiedCount)

	events, err := auditStore.ListByAccount(ctx, owner)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventVerificationSubmitted), events[0].Action)
	assert.Equal(t, string(audit.EventVerificationReviewed), events[1].Action)
	assert.Equal(t, reviewer.String(), events[1].ActorID)
}

func TestModule_RedisOutageDuringReviewNeverServesStaleGate(t *testing.T) {
	ctx := context.Background()
	owner := id.NewAccountID()
	reviewer := id.NewAccountID()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	m := New(Deps{
		Store:        store.NewInMemoryStore(),
		Capabilities: adapters.NewAllowlistChecker(reviewer),
		Cache:        gate.NewRedisCache(client, 5*time.Minute),
		Metrics:      metrics.NewWith(prometheus.NewRegistry()),
	})

	doc, err := m.Registry.Submit(ctx, owner, models.CategoryBusinessLicense, "s3://license.pdf")
	require.NoError(t, err)
	before, err := m.Gate.GateFor(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, before.VerifiedCount)

	mr.SetError("LOADING Redis is loading the dataset in memory")
	_, err = m.Review.Review(ctx, doc.ID, models.DecisionVerified, reviewer, "")
	require.NoError(t, err, "a cache outage does not fail a committed review")
	mr.SetError("")

	after, err := m.Gate.GateFor(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, after.VerifiedCount)
	assert.Equal(t, 14, after.Score)
}

func TestModule_NilOptionalDeps(t *testing.T) {
	m := New(Deps{Store: store.NewInMemoryStore()})

	_, err := m.Registry.Submit(context.Background(), id.NewAccountID(), models.CategoryAddressProof, "ref")
	require.NoError(t, err)
	items, err := m.Registry.ReviewQueue(context.Background(), models.QueueFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Nil(t, items[0].Owner)
}
