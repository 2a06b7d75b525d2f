package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-rppg/common/config"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	check := Checker(client)
	assert.NoError(t, check(context.Background()))

	mr.Close()
	assert.Error(t, check(context.Background()))
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := Connect(context.Background(), &config.RedisConfig{Addr: addr})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), addr)
}
