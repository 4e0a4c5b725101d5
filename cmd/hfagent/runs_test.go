package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRunStore(t *testing.T) {
	t.Setenv("HFAGENT_BASE_PATH", t.TempDir())

	store, err := openRunStore(context.Background())
	require.NoError(t, err)
	defer store.Close()

	all, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
