package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsProduceValidSnapshots(t *testing.T) {
	started, err := NewStartedSnapshot("vid00000001", "resample_up")
	require.NoError(t, err)
	assert.Equal(t, StateStarted, started.State)
	assert.Nil(t, started.Stage)
	assert.False(t, started.Terminal())

	progress, err := NewProgressSnapshot("vid00000001", "resample_up", StageTransforming, Percent(50))
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, progress.State)
	require.NotNil(t, progress.Stage)
	assert.Equal(t, StageTransforming, *progress.Stage)
	require.NotNil(t, progress.Percentage)
	assert.Equal(t, 50, *progress.Percentage)

	done, err := NewDoneSnapshot("vid00000001", "resample_up", "http://localhost/artifacts/abc")
	require.NoError(t, err)
	assert.True(t, done.Terminal())
	require.NotNil(t, done.Result)

	failed, err := NewFailedSnapshot("vid00000001", "resample_up")
	require.NoError(t, err)
	assert.True(t, failed.Terminal())
	assert.True(t, failed.Failed)
	assert.Nil(t, failed.Result)

	cancelled, err := NewCancelledSnapshot("vid00000001", "resample_up")
	require.NoError(t, err)
	assert.True(t, cancelled.Terminal())
	assert.True(t, cancelled.Cancelled)
}

func TestValidateRejectsStructuralViolations(t *testing.T) {
	stage := StageFetching

	tests := []struct {
		name string
		snap StatusSnapshot
	}{
		{
			name: "missing identifier",
			snap: StatusSnapshot{Variant: "resample_up", State: StateStarted},
		},
		{
			name: "missing variant",
			snap: StatusSnapshot{Identifier: "vid00000001", State: StateStarted},
		},
		{
			name: "unknown state",
			snap: StatusSnapshot{Identifier: "vid00000001", Variant: "resample_up", State: "PENDING"},
		},
		{
			name: "stage without in-progress",
			snap: StatusSnapshot{Identifier: "vid00000001", Variant: "resample_up", State: StateStarted, Stage: &stage},
		},
		{
			name: "in-progress without stage",
			snap: StatusSnapshot{Identifier: "vid00000001", Variant: "resample_up", State: StateInProgress},
		},
		{
			name: "failed and cancelled together",
			snap: StatusSnapshot{Identifier: "vid00000001", Variant: "resample_up", State: StateDone, Failed: true, Cancelled: true},
		},
		{
			name: "failed before done",
			snap: StatusSnapshot{Identifier: "vid00000001", Variant: "resample_up", State: StateStarted, Failed: true},
		},
		{
			name: "percentage out of range",
			snap: StatusSnapshot{Identifier: "vid00000001", Variant: "resample_up", State: StateInProgress, Stage: &stage, Percentage: Percent(101)},
		},
		{
			name: "result on failed snapshot",
			snap: func() StatusSnapshot {
				ref := "http://localhost/artifacts/abc"
				return StatusSnapshot{Identifier: "vid00000001", Variant: "resample_up", State: StateDone, Failed: true, Result: &ref}
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			assert.ErrorIs(t, err, ErrInvariant)
		})
	}
}

func TestConstructorRejectsInvalidInput(t *testing.T) {
	_, err := NewStartedSnapshot("", "resample_up")
	assert.ErrorIs(t, err, ErrInvariant)

	_, err = NewProgressSnapshot("vid00000001", "resample_up", "remixing", nil)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestSnapshotJSONShape(t *testing.T) {
	snap, err := NewProgressSnapshot("vid00000001", "resample_up", StagePublishing, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "IN_PROGRESS", decoded["state"])
	assert.Equal(t, "publishing", decoded["stage"])
	assert.Nil(t, decoded["percentage"])
	assert.Equal(t, false, decoded["failed"])
	assert.Nil(t, decoded["result"])
}
