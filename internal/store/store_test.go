package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreColumnRoundTrip(t *testing.T) {
	s := NewMemStore()
	key := ColumnKey{Dimension: 0, X: 1, Z: -2}

	_, ok, err := s.LoadColumn(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveColumn(key, []byte{1, 2, 3}))
	data, ok, err := s.LoadColumn(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, s.DeleteColumn(key))
	_, ok, err = s.LoadColumn(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemStoreSettingsRoundTrip(t *testing.T) {
	s := NewMemStore()
	_, ok, err := s.GetSetting("motd")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting("motd", "welcome"))
	v, ok, err := s.GetSetting("motd")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "welcome", v)
}

func TestMemStoreSetSettingRejectsEmptyKey(t *testing.T) {
	s := NewMemStore()
	assert.Error(t, s.SetSetting("", "x"))
}
