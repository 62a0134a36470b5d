package binding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorcurl/internal/binding"
)

func TestParseElderToken(t *testing.T) {
	const badgeID = "a3f1c2d4-0000-4abc-8def-123456789abc"

	t.Run("accepts bare badge id", func(t *testing.T) {
		got, err := binding.ParseElderToken(badgeID)
		require.NoError(t, err)
		assert.Equal(t, badgeID, got)
	})

	t.Run("accepts badge URI form", func(t *testing.T) {
		got, err := binding.ParseElderToken("floorcurl://elder/" + badgeID)
		require.NoError(t, err)
		assert.Equal(t, badgeID, got)
	})

	t.Run("both forms resolve to the same id", func(t *testing.T) {
		bare, err := binding.ParseElderToken(badgeID)
		require.NoError(t, err)
		uri, err := binding.ParseElderToken("floorcurl://elder/" + badgeID)
		require.NoError(t, err)
		assert.Equal(t, bare, uri)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		got, err := binding.ParseElderToken("  " + badgeID + "\n")
		require.NoError(t, err)
		assert.Equal(t, badgeID, got)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"not-a-token",
			"12345",
			"floorcurl://elder/",
			"floorcurl://elder/not-a-uuid",
			"floorcurl://store/" + badgeID,
			"https://example.com/" + badgeID,
			badgeID + "trailing",
		} {
			_, err := binding.ParseElderToken(raw)
			assert.ErrorIsf(t, err, binding.ErrInvalidToken, "input %q should be rejected", raw)
		}
	})

	t.Run("rejects uppercase bare id", func(t *testing.T) {
		_, err := binding.ParseElderToken("A3F1C2D4-0000-4ABC-8DEF-123456789ABC")
		assert.ErrorIs(t, err, binding.ErrInvalidToken)
	})
}
