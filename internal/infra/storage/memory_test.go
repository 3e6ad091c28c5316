package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")

	ref, err := m.Put(ctx, "owners/o/images/original/1.jpg", []byte("abc"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, media.Ref("memory://neuroscan/owners/o/images/original/1.jpg"), ref)
	assert.True(t, ref.IsDurable())

	got, err := m.Get(ctx, "owners/o/images/original/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	require.NoError(t, m.Delete(ctx, "owners/o/images/original/1.jpg"))
	_, err = m.Get(ctx, "owners/o/images/original/1.jpg")
	assert.ErrorIs(t, err, media.ErrObjectNotFound)
}
