package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasank-xyz/github-for-jira/internal/core"
)

func TestInMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTokenStore()

	require.NoError(t, store.Save(ctx, 1, core.NewAuthToken("ghs_live", time.Now().Add(time.Hour))))
	require.NoError(t, store.Save(ctx, 2, core.NewAuthToken("ghs_dead", time.Now().Add(-time.Hour))))

	tok, found, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ghs_live", tok.Token)

	_, found, err = store.Load(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
