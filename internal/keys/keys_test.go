package keys_test

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashrip/internal/keys"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a1b2c3d4e5f600112233445566778899",
		keys.Normalize("A1B2C3D4-E5F6-0011-2233-445566778899"))
	assert.Equal(t, "ab12cd", keys.Normalize("AB12CD"))
	assert.Equal(t, "", keys.Normalize(""))
}

func TestBindMatchesCaseInsensitively(t *testing.T) {
	want, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	set, err := keys.NewSet(map[string]string{
		"AB12CD": "000102030405060708090a0b0c0d0e0f",
	})
	require.NoError(t, err)

	key, err := set.Bind("rep1", "ab12cd")
	require.NoError(t, err)
	assert.Equal(t, want, key)
}

func TestBindMatchesDashedKeyIDs(t *testing.T) {
	set, err := keys.NewSet(map[string]string{
		"a1b2c3d4e5f600112233445566778899": "ffeeddccbbaa99887766554433221100",
	})
	require.NoError(t, err)

	key, err := set.Bind("video_high", "A1B2C3D4-E5F6-0011-2233-445566778899")
	require.NoError(t, err)
	assert.Len(t, key, 16)
}

func TestBindReturnsNilForClearContent(t *testing.T) {
	set, err := keys.NewSet(nil)
	require.NoError(t, err)

	key, err := set.Bind("rep1", "")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestBindFailsClosedOnMissingKey(t *testing.T) {
	set, err := keys.NewSet(map[string]string{
		"ab12cd": "00112233445566778899aabbccddeeff",
	})
	require.NoError(t, err)

	key, err := set.Bind("video_high", "deadbeef")

	var resErr *keys.ResolutionError
	require.True(t, errors.As(err, &resErr), "missing key must be a ResolutionError, got %v", err)
	assert.Equal(t, "video_high", resErr.RepID)
	assert.Equal(t, "deadbeef", resErr.KeyID)
	assert.Nil(t, key, "no partial or default key on failure")
}

func TestNewSetRejectsInvalidHex(t *testing.T) {
	_, err := keys.NewSet(map[string]string{"ab": "not-hex"})
	assert.Error(t, err)
}

func TestNewSetRejectsDuplicateNormalizedIDs(t *testing.T) {
	_, err := keys.NewSet(map[string]string{
		"AB-12": "00",
		"ab12":  "11",
	})
	assert.ErrorContains(t, err, "duplicate key id")
}
