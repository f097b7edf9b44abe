package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter is a minimal adapter for registry selection tests.
type stubAdapter struct {
	name    string
	enabled bool
}

func (s *stubAdapter) Name() string        { return s.name }
func (s *stubAdapter) DisplayName() string { return s.name }
func (s *stubAdapter) Enabled() bool       { return s.enabled }
func (s *stubAdapter) CreateTask(context.Context, TaskPayload) (CreateResult, error) {
	return CreateResult{}, nil
}
func (s *stubAdapter) PollStatus(context.Context, string) (StatusResult, error) {
	return StatusResult{}, nil
}
func (s *stubAdapter) FetchResult(context.Context, string) (FetchResult, error) {
	return FetchResult{}, nil
}
func (s *stubAdapter) CancelTask(context.Context, string) bool { return false }
func (s *stubAdapter) SupportedFormats() []Format              { return nil }
func (s *stubAdapter) SupportedPresets() []string              { return nil }

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry("pixverse", "sample")
	reg.Register(&stubAdapter{name: "pixverse", enabled: true})

	a, err := reg.Get("pixverse")
	require.NoError(t, err)
	assert.Equal(t, "pixverse", a.Name())

	_, err = reg.Get("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistry_Best(t *testing.T) {
	t.Run("preferred wins when enabled", func(t *testing.T) {
		reg := NewRegistry("pixverse", "sample")
		reg.Register(&stubAdapter{name: "pixverse", enabled: true})
		reg.Register(&stubAdapter{name: "other", enabled: true})
		reg.Register(&stubAdapter{name: "sample", enabled: true})

		a, err := reg.Best("other")
		require.NoError(t, err)
		assert.Equal(t, "other", a.Name())
	})

	t.Run("disabled preferred falls through to primary", func(t *testing.T) {
		reg := NewRegistry("pixverse", "sample")
		reg.Register(&stubAdapter{name: "pixverse", enabled: true})
		reg.Register(&stubAdapter{name: "other", enabled: false})
		reg.Register(&stubAdapter{name: "sample", enabled: true})

		a, err := reg.Best("other")
		require.NoError(t, err)
		assert.Equal(t, "pixverse", a.Name())
	})

	t.Run("disabled primary falls through to fallback", func(t *testing.T) {
		reg := NewRegistry("pixverse", "sample")
		reg.Register(&stubAdapter{name: "pixverse", enabled: false})
		reg.Register(&stubAdapter{name: "sample", enabled: true})

		a, err := reg.Best("")
		require.NoError(t, err)
		assert.Equal(t, "sample", a.Name())
	})

	t.Run("unregistered preferred is skipped", func(t *testing.T) {
		reg := NewRegistry("pixverse", "sample")
		reg.Register(&stubAdapter{name: "pixverse", enabled: true})

		a, err := reg.Best("ghost")
		require.NoError(t, err)
		assert.Equal(t, "pixverse", a.Name())
	})

	t.Run("any enabled adapter beats no adapter", func(t *testing.T) {
		reg := NewRegistry("pixverse", "sample")
		reg.Register(&stubAdapter{name: "spare", enabled: true})

		a, err := reg.Best("")
		require.NoError(t, err)
		assert.Equal(t, "spare", a.Name())
	})

	t.Run("empty registry fails", func(t *testing.T) {
		reg := NewRegistry("pixverse", "sample")

		_, err := reg.Best("")
		assert.ErrorIs(t, err, ErrNoProviders)
	})
}

func TestRegistry_ForTaskID(t *testing.T) {
	reg := NewRegistry("pixverse", "sample")
	reg.Register(&stubAdapter{name: "pixverse", enabled: true})

	a, err := reg.ForTaskID("pixverse-task-123")
	require.NoError(t, err)
	assert.Equal(t, "pixverse", a.Name())

	_, err = reg.ForTaskID("ghost-task-123")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = reg.ForTaskID("noprefix")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry("pixverse", "sample")
	reg.Register(&stubAdapter{name: "pixverse"})
	reg.Register(&stubAdapter{name: "sample"})

	names := reg.Names()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "pixverse")
	assert.Contains(t, names, "sample")
}

func TestTaskID_RoundTrip(t *testing.T) {
	id := MakeTaskID("pixverse", "abc-123")
	assert.Equal(t, "pixverse-abc-123", id)

	name, upstream := SplitTaskID(id)
	assert.Equal(t, "pixverse", name)
	assert.Equal(t, "abc-123", upstream)

	name, upstream = SplitTaskID("noprefix")
	assert.Empty(t, name)
	assert.Empty(t, upstream)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusUnknown.IsTerminal())
}

func TestFormat_IsValid(t *testing.T) {
	assert.True(t, FormatLandscape.IsValid())
	assert.True(t, FormatPortrait.IsValid())
	assert.True(t, FormatSquare.IsValid())
	assert.False(t, Format("4:3").IsValid())
}
