package abi

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestSignalSet(t *testing.T) {
	n := neko.Modern(t)

	n.It("starts empty", func(t *testing.T) {
		var set SignalSet

		require.True(t, set.Empty())
		require.False(t, set.Contains(SIGINT))
	})

	n.It("adds and removes members", func(t *testing.T) {
		set := MakeSignalSet(SIGINT, SIGTERM)

		require.True(t, set.Contains(SIGINT))
		require.True(t, set.Contains(SIGTERM))
		require.False(t, set.Contains(SIGKILL))

		set = set.Remove(SIGINT)
		require.False(t, set.Contains(SIGINT))
		require.True(t, set.Contains(SIGTERM))
	})

	n.It("adding a member twice is a no-op", func(t *testing.T) {
		set := MakeSignalSet(SIGUSR1)

		require.Equal(t, set, set.Add(SIGUSR1))
	})

	n.It("finds the lowest member not in another set", func(t *testing.T) {
		set := MakeSignalSet(Signal(3), Signal(7))

		sig, ok := set.FirstNotIn(0)
		require.True(t, ok)
		require.Equal(t, Signal(3), sig)

		sig, ok = set.FirstNotIn(MakeSignalSet(Signal(3)))
		require.True(t, ok)
		require.Equal(t, Signal(7), sig)

		_, ok = set.FirstNotIn(MakeSignalSet(Signal(3), Signal(7)))
		require.False(t, ok)

		_, ok = SignalSet(0).FirstNotIn(0)
		require.False(t, ok)
	})

	n.Meow()
}
