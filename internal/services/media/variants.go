package media

import (
	"fmt"
	"math"
	"sort"
)

// ErrUnknownVariant is returned when a requested variant is not in the catalog.
var ErrUnknownVariant = fmt.Errorf("unknown variant")

// sourceSampleRate is the rate the fetcher extracts audio at.
const sourceSampleRate = 44100

// Variant is one named effect chain, expressed as an ffmpeg filtergraph.
type Variant struct {
	Name        string
	Description string
	Filtergraph string
}

// semitoneRatio converts a pitch shift in semitones to a playback-rate ratio.
func semitoneRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// slowedReverb slows playback (pitch drops with it) and adds a room reverb.
func slowedReverb(tempo float64) string {
	return fmt.Sprintf(
		"asetrate=%d*%.2f,aresample=%d,aecho=0.8:0.88:60|90:0.4|0.3",
		sourceSampleRate, tempo, sourceSampleRate)
}

// pitchShift drops pitch by the given semitones at unchanged tempo, then adds
// a 250ms delay tail and a wide reverb.
func pitchShift(semitones float64) string {
	ratio := semitoneRatio(semitones)
	return fmt.Sprintf(
		"asetrate=%d*%.6f,aresample=%d,atempo=%.6f,adelay=250|250,aecho=0.8:0.9:250:0.8",
		sourceSampleRate, ratio, sourceSampleRate, 1/ratio)
}

// resample bounces the audio through a lower rate for a lo-fi texture.
func resample(rate int) string {
	return fmt.Sprintf("aresample=%d,aresample=%d", rate, sourceSampleRate)
}

// catalog holds every effect chain clients may request.
var catalog = map[string]Variant{
	"slowed_reverb_low": {
		Name:        "slowed_reverb_low",
		Description: "slowed to 85% with reverb",
		Filtergraph: slowedReverb(0.85),
	},
	"slowed_reverb_mid": {
		Name:        "slowed_reverb_mid",
		Description: "slowed to 80% with reverb",
		Filtergraph: slowedReverb(0.80),
	},
	"slowed_reverb_high": {
		Name:        "slowed_reverb_high",
		Description: "slowed to 70% with reverb",
		Filtergraph: slowedReverb(0.70),
	},
	"pitch_shift_low": {
		Name:        "pitch_shift_low",
		Description: "pitched down 3.5 semitones with delay and reverb",
		Filtergraph: pitchShift(-3.5),
	},
	"pitch_shift_mid": {
		Name:        "pitch_shift_mid",
		Description: "pitched down 4.5 semitones with delay and reverb",
		Filtergraph: pitchShift(-4.5),
	},
	"pitch_shift_high": {
		Name:        "pitch_shift_high",
		Description: "pitched down 5.5 semitones with delay and reverb",
		Filtergraph: pitchShift(-5.5),
	},
	"resample_down": {
		Name:        "resample_down",
		Description: "bounced through 4kHz",
		Filtergraph: resample(4000),
	},
	"resample_up": {
		Name:        "resample_up",
		Description: "bounced through 16kHz",
		Filtergraph: resample(16000),
	},
}

// LookupVariant returns the catalog entry for a variant name
func LookupVariant(name string) (Variant, error) {
	v, ok := catalog[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// KnownVariant reports whether a variant name is in the catalog
func KnownVariant(name string) bool {
	_, ok := catalog[name]
	return ok
}

// VariantNames returns the catalog's variant names in sorted order
func VariantNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
