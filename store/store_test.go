package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// runContract exercises the behaviour every Store must share.
func runContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "absent")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("put get replace", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "a", []byte("one")))
		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), got)

		require.NoError(t, s.Put(ctx, "a", []byte("two")))
		got, err = s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("list sorted", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "c", []byte("x")))
		require.NoError(t, s.Put(ctx, "b", []byte("x")))
		names, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, names)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "b"))
		require.NoError(t, s.Delete(ctx, "b"))
		_, err := s.Get(ctx, "b")
		assert.True(t, errors.Is(err, ErrNotFound))
		names, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, names)
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "../etc", "a/b", ".hidden"} {
			var verr *errors.ValidationError
			assert.True(t, errors.As(s.Put(ctx, name, nil), &verr), name)
		}
	})

	t.Run("pipeline round trip", func(t *testing.T) {
		cfg := tabular.DefaultConfig()
		p, err := tabular.New(cfg)
		require.NoError(t, err)
		data := frame.MustNew(
			frame.NewNumerical("age", []float64{20, 30, 40, 50}),
			frame.NewCategorical("city", []string{"NY", "LA", "NY", "SF"}),
		)
		require.NoError(t, p.Fit(data, tabular.FitOptions{}))
		require.NoError(t, SavePipeline(ctx, s, "customers", p))

		loaded, err := LoadPipeline(ctx, s, "customers")
		require.NoError(t, err)
		want, err := p.Transform(data)
		require.NoError(t, err)
		got, err := loaded.Transform(data)
		require.NoError(t, err)
		assert.Equal(t, want.Records(), got.Records())
	})
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	runContract(t, s)
}

func TestFileStoreCorruptBlob(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "broken", []byte("not a pipeline")))

	_, err = LoadPipeline(ctx, s, "broken")
	assert.Error(t, err)
}

func newRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newRedisStore(t)
	runContract(t, s)
	require.NoError(t, s.Ping(context.Background()))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"a"))
	assert.True(t, mr.Exists(DefaultRedisPrefix+indexSuffix))
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, WithTTL(time.Minute), WithPrefix("test:"))

	require.NoError(t, s.Put(ctx, "short", []byte("x")))
	assert.Equal(t, time.Minute, mr.TTL("test:short"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "short")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisStoreListPrunesExpired(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	_, err := mr.ZAdd(DefaultRedisPrefix+indexSuffix, 1, "stale")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "fresh", []byte("x")))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, names)
}

func TestRedisStoreIndexNameIsAPlainPipeline(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.Put(ctx, "churn", []byte("x")))
	require.NoError(t, s.Put(ctx, "index", []byte("y")))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"churn", "index"}, names)
	got, err := s.Get(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got)

	members, err := mr.ZMembers(DefaultRedisPrefix + indexSuffix)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"churn", "index"}, members)

	var verr *errors.ValidationError
	assert.True(t, errors.As(s.Put(ctx, indexSuffix, []byte("z")), &verr))
}
