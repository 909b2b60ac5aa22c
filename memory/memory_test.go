package memory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestVirtualMemory(t *testing.T) {
	n := neko.Modern(t)

	n.It("reads back what was written", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0, 0x10000)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte{1, 2, 3}, 0x100)
		require.NoError(t, err)

		buf := make([]byte, 3)
		_, err = vm.ReadAt(buf, 0x100)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3}, buf)
	})

	n.It("faults outside any region", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0, 0x1000)
		require.NoError(t, err)

		_, err = vm.ReadAt(make([]byte, 4), 0x2000)
		require.Error(t, err)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		// straddling the region end faults too
		_, err = vm.WriteAt(make([]byte, 8), 0xffc+1)
		require.Error(t, err)
	})

	n.It("forks a private copy", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0, 0x1000)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte{7}, 0x10)
		require.NoError(t, err)

		child := vm.Fork()

		_, err = vm.WriteAt([]byte{8}, 0x10)
		require.NoError(t, err)

		buf := make([]byte, 1)
		_, err = child.ReadAt(buf, 0x10)
		require.NoError(t, err)
		require.Equal(t, byte(7), buf[0])
	})

	n.Meow()
}
