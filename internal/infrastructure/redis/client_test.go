package redis

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientSuccess(t *testing.T) {
	s := miniredis.RunT(t)

	var buf bytes.Buffer
	ctx := context.Background()
	client, err := NewClient(ctx, fmt.Sprintf("redis://%s/2", s.Addr()), zerolog.New(&buf))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	assert.Equal(t, "v", mustGet(t, s, 2, "k"))
	assert.Contains(t, buf.String(), "connected to redis")
}

func mustGet(t *testing.T, s *miniredis.Miniredis, db int, key string) string {
	t.Helper()

	v, err := s.DB(db).Get(key)
	require.NoError(t, err)

	return v
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://bad-url", zerolog.Nop())
	assert.Error(t, err)
}

func TestNewClientPingFailure(t *testing.T) {
	s := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s", s.Addr())
	s.Close()

	_, err := NewClient(context.Background(), url, zerolog.Nop())
	assert.Error(t, err)
}
