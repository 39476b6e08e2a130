package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestNewJanitorRejectsInvalidSchedule(t *testing.T) {
	registry := newTestRegistry(t, &fakeFetcher{}, &fakeTransformer{}, &fakePublisher{})

	_, err := NewJanitor(registry, "not a schedule", time.Minute, arbor.NewLogger())
	assert.Error(t, err)
}

func TestJanitorSweepsTerminalSubjobs(t *testing.T) {
	registry := newTestRegistry(t, &fakeFetcher{}, &fakeTransformer{}, &fakePublisher{})
	conn := newFakeConn("c1")

	require.True(t, registry.Init("vid00000001", "resample_up", conn))
	waitTerminal(t, registry, "vid00000001", "resample_up")
	registry.DropConnection(conn)

	janitor, err := NewJanitor(registry, "@every 10ms", 0, arbor.NewLogger())
	require.NoError(t, err)

	janitor.Start()
	defer janitor.Stop()

	require.Eventually(t, func() bool {
		return registry.Snapshot("vid00000001", "resample_up") == nil
	}, 5*time.Second, 10*time.Millisecond)
}
