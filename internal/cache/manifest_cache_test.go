package cache

import (
	"os"
	"testing"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache(t *testing.T) {
	c := &FileCache{Dir: t.TempDir() + "/nested"}

	assert.False(t, c.Exists("X1234"))
	_, err := c.Get("X1234")
	assert.ErrorIs(t, err, os.ErrNotExist)

	md := &domain.Metadata{Items: []domain.MetadataItem{{Type: "app", PackageFamilyName: "pfn", Size: 42}}}
	require.NoError(t, c.Put("X1234", md))
	assert.True(t, c.Exists("X1234"))

	got, err := c.Get("X1234")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "pfn", got.Items[0].PackageFamilyName)
	assert.Equal(t, int64(42), got.Items[0].Size)
}

func TestFileCacheSanitizesID(t *testing.T) {
	c := &FileCache{Dir: t.TempDir()}

	require.NoError(t, c.Put("../escape", &domain.Metadata{}))
	assert.True(t, c.Exists("../escape"))
	assert.FileExists(t, c.Dir+"/.._escape.json")
}
