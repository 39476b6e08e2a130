package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupVariantKnownNames(t *testing.T) {
	for _, name := range VariantNames() {
		v, err := LookupVariant(name)
		require.NoError(t, err)
		assert.Equal(t, name, v.Name)
		assert.NotEmpty(t, v.Filtergraph)
		assert.True(t, KnownVariant(name))
	}
}

func TestLookupVariantUnknownName(t *testing.T) {
	_, err := LookupVariant("vaporwave_extreme")
	assert.ErrorIs(t, err, ErrUnknownVariant)
	assert.False(t, KnownVariant("vaporwave_extreme"))
}

func TestVariantNamesCoverCatalog(t *testing.T) {
	names := VariantNames()
	assert.ElementsMatch(t, []string{
		"slowed_reverb_low",
		"slowed_reverb_mid",
		"slowed_reverb_high",
		"pitch_shift_low",
		"pitch_shift_mid",
		"pitch_shift_high",
		"resample_down",
		"resample_up",
	}, names)

	// Sorted for a stable REST listing.
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestSemitoneRatio(t *testing.T) {
	assert.InDelta(t, 1.0, semitoneRatio(0), 1e-9)
	assert.InDelta(t, 2.0, semitoneRatio(12), 1e-9)
	assert.InDelta(t, 0.5, semitoneRatio(-12), 1e-9)
}

func TestFiltergraphShapes(t *testing.T) {
	slowed, err := LookupVariant("slowed_reverb_mid")
	require.NoError(t, err)
	assert.Contains(t, slowed.Filtergraph, "asetrate=44100*0.80")
	assert.Contains(t, slowed.Filtergraph, "aecho")

	pitched, err := LookupVariant("pitch_shift_low")
	require.NoError(t, err)
	assert.Contains(t, pitched.Filtergraph, "atempo")
	assert.Contains(t, pitched.Filtergraph, "adelay=250|250")

	down, err := LookupVariant("resample_down")
	require.NoError(t, err)
	assert.Contains(t, down.Filtergraph, "aresample=4000")
}
