package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_Ordering(t *testing.T) {
	assert.Less(t, LevelNone, LevelPublic)
	assert.Less(t, LevelPublic, LevelUser)
	assert.Less(t, LevelUser, LevelPlus)
	assert.Less(t, LevelPlus, LevelAdmin)
	assert.Equal(t, LevelPublic, LevelFree)
	assert.Equal(t, 4, int(LevelAdmin))
}

func TestLevel_Label(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelNone, "anonymous"},
		{LevelPublic, "public"},
		{LevelUser, "user"},
		{LevelPlus, "plus"},
		{LevelAdmin, "admin"},
	}
	for _, tc := range tests {
		got, err := tc.level.Label()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.want, tc.level.String())
	}
}

func TestLevel_UnknownFailsLoudly(t *testing.T) {
	_, err := Level(7).Label()
	require.ErrorIs(t, err, ErrUnknownLevel)

	assert.Panics(t, func() { _ = Level(-1).String() })
}
