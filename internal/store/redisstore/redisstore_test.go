package redisstore

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"mangatrack/internal/records"
	"mangatrack/internal/store"
	"mangatrack/internal/store/storetest"
)

func TestMatches(t *testing.T) {
	fields := map[string]string{"url": "https://m/1", "file_id": "f"}

	assert.True(t, matches(fields, records.Filter{"url": "https://m/1"}))
	assert.True(t, matches(fields, records.Filter{"url": "https://m/1", "cbz_id": nil}))
	assert.False(t, matches(fields, records.Filter{"file_id": nil}))
	assert.False(t, matches(fields, records.Filter{"url": "https://m/2"}))
	assert.True(t, matches(map[string]string{"output": "2"}, records.Filter{"output": 2}))
}

func TestExact(t *testing.T) {
	want := (&records.ChapterFile{URL: "https://m/1"}).Fields()

	assert.True(t, exact(map[string]string{"url": "https://m/1"}, want))
	assert.False(t, exact(map[string]string{"url": "https://m/1", "file_id": "f"}, want))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestWrap(t *testing.T) {
	assert.ErrorIs(t, wrap("get", timeoutErr{}), store.ErrUnavailable)
	assert.ErrorIs(t, wrap("get", redis.ErrClosed), store.ErrUnavailable)
	assert.NotErrorIs(t, wrap("get", errors.New("WRONGTYPE")), store.ErrUnavailable)
}

func TestKeys(t *testing.T) {
	s := New(nil, "mangadb", time.Second, nil)

	assert.Equal(t, "mangadb:subscriptions", s.indexKey(records.KindSubscription))
	assert.Equal(t, "mangadb:manga_names:abc", s.recordKey(records.KindMangaName, "abc"))
	assert.Equal(t, "mangadb:seq", s.seqKey())
}

// TestConformance runs the shared store suite against a real Redis.
// Skipped when Docker is not available.
func TestConformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	suite.Run(t, &storetest.Suite{
		NewStore: func(t *testing.T) store.Store {
			client := redis.NewClient(opts)
			require.NoError(t, client.FlushDB(ctx).Err())
			return New(client, "mangadb_test", 5*time.Second, nil)
		},
	})
}
