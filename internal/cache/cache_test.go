package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/kvcache/internal/store"
	"github.com/vyrodovalexey/kvcache/internal/value"
)

// setupCache starts a miniredis server and a cache on top of it.
func setupCache(t *testing.T, opts ...Option) (*miniredis.Miniredis, *Cache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	return mr, New(store.NewRedisStoreFromClient(client), opts...)
}

// sequentialKeys returns a key generator yielding k1, k2, ...
func sequentialKeys() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("k%d", n)
	}
}

func TestCache_StoreAndGet_RoundTrip(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	tests := []struct {
		name string
		v    value.Value
		want []byte
	}{
		{name: "text", v: value.Text("Hello Redis!"), want: []byte("Hello Redis!")},
		{name: "empty text", v: value.Text(""), want: []byte{}},
		{name: "bytes", v: value.Bytes([]byte{0x00, 0xff, 'a'}), want: []byte{0x00, 0xff, 'a'}},
		{name: "int", v: value.Int(123), want: []byte("123")},
		{name: "negative int", v: value.Int(-7), want: []byte("-7")},
		{name: "float", v: value.Float(45.67), want: []byte("45.67")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := c.Store(ctx, tt.v)
			require.NoError(t, err)
			require.NotEmpty(t, key)

			raw, found, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tt.want, raw)
		})
	}
}

func TestCache_Store_GeneratesDistinctKeys(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := range 20 {
		key, err := c.Store(ctx, value.Int(int64(i)))
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestCache_ConcreteScenario(t *testing.T) {
	_, c := setupCache(t, WithKeyGenerator(sequentialKeys()))
	ctx := context.Background()

	k1, err := c.Store(ctx, value.Text("Hello"))
	require.NoError(t, err)
	assert.Equal(t, "k1", k1)

	text, found, err := c.GetText(ctx, k1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Hello", text)

	k2, err := c.Store(ctx, value.Int(42))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	n, found, err := c.GetInt(ctx, k2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), n)

	count, err := c.CallCount(ctx, OpStore)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	replay, err := c.Replay(ctx, OpStore)
	require.NoError(t, err)
	require.Equal(t, 2, replay.Count())
	assert.Equal(t, Call{Input: `"Hello"`, Output: "k1"}, replay.Calls[0])
	assert.Equal(t, Call{Input: "42", Output: "k2"}, replay.Calls[1])
}

func TestCache_Get_Absent(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	raw, found, err := c.Get(ctx, "never-stored")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, raw)

	n, found, err := c.GetInt(ctx, "never-stored")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, n)

	s, found, err := c.GetText(ctx, "never-stored")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, s)
}

func TestCache_TypedGetters(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	fkey, err := c.Store(ctx, value.Float(45.67))
	require.NoError(t, err)
	f, found, err := c.GetFloat(ctx, fkey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 45.67, f, 1e-9)

	bkey, err := c.Store(ctx, value.Bytes([]byte("bytes data")))
	require.NoError(t, err)
	b, found, err := c.GetBytes(ctx, bkey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("bytes data"), b)

	// Integers are stored as text and can be read back as text too.
	ikey, err := c.Store(ctx, value.Int(123))
	require.NoError(t, err)
	s, found, err := c.GetText(ctx, ikey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "123", s)
}

func TestCache_GetInt_DecodeFailure(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, value.Text("not a number"))
	require.NoError(t, err)

	n, found, err := c.GetInt(ctx, key)
	require.Error(t, err)
	assert.ErrorIs(t, err, value.ErrDecode)
	assert.False(t, found)
	assert.Zero(t, n)
	assert.NotContains(t, err.Error(), "not a number")

	var decErr *value.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, value.KindInt, decErr.Kind)
}

func TestCache_GetText_InvalidUTF8(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, value.Bytes([]byte{0xff, 0xfe}))
	require.NoError(t, err)

	_, _, err = c.GetText(ctx, key)
	assert.ErrorIs(t, err, value.ErrDecode)
}

func TestGetAs_CustomDecoder(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, value.Text("a,b,c"))
	require.NoError(t, err)

	called := 0
	split := func(raw []byte) (int, error) {
		called++
		return len(raw), nil
	}

	n, found, err := GetAs(ctx, c, key, split)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 5, n)

	_, found, err = GetAs(ctx, c, "missing", split)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, called, "decoder must not run for absent keys")
}

func TestCache_Reset(t *testing.T) {
	mr, c := setupCache(t)
	ctx := context.Background()

	key, err := c.Store(ctx, value.Text("x"))
	require.NoError(t, err)
	require.NoError(t, mr.Set("foreign", "y"))

	require.NoError(t, c.Reset(ctx))

	_, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("foreign"))

	count, err := c.CallCount(ctx, OpStore)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNew_DoesNotClearStore(t *testing.T) {
	mr, _ := setupCache(t)
	require.NoError(t, mr.Set("existing", "keep"))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := New(store.NewRedisStoreFromClient(client))

	s, found, err := c.GetText(context.Background(), "existing")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "keep", s)
}

func TestCache_StoreUnavailable(t *testing.T) {
	mr, c := setupCache(t)
	ctx := context.Background()
	mr.SetError("ERR store down")

	_, err := c.Store(ctx, value.Text("x"))
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, _, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, _, err = c.GetInt(ctx, "k")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, err = c.Replay(ctx, OpStore)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, err = c.CallCount(ctx, OpStore)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	assert.ErrorIs(t, c.Reset(ctx), store.ErrStoreUnavailable)
}

func TestCache_Recorder(t *testing.T) {
	_, c := setupCache(t)
	assert.NotNil(t, c.Recorder())
	assert.Same(t, c.Recorder(), c.Recorder())
}
