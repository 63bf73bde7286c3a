package plans

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "default_plan": "free",
  "plans": [
    {"plan_id": "free", "name": "Free", "limits": {"subscriptions": 2}},
    {"plan_id": "pro", "name": "Pro", "limits": {"subscriptions": -1}}
  ]
}`

func TestAllows(t *testing.T) {
	r, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.Allows("free", ResourceSubscriptions, 2))
	assert.False(t, r.Allows("free", ResourceSubscriptions, 3))
	assert.True(t, r.Allows("pro", ResourceSubscriptions, 1000))
	assert.False(t, r.Allows("mystery", ResourceSubscriptions, 3), "unknown plan falls back to default")
	assert.True(t, r.Allows("free", "exports", 99), "missing limit is unlimited")
}

func TestEmptyRegistryIsUnlimited(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Allows("free", ResourceSubscriptions, 1_000_000))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	r, err := LoadFromFile(path)
	require.NoError(t, err)
	limit, ok := r.Limit("free", ResourceSubscriptions)
	assert.True(t, ok)
	assert.Equal(t, 2, limit)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Parse([]byte("{"))
	assert.Error(t, err)
}
