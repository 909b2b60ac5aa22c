package memory

import (
	"github.com/pkg/errors"
)

const PageSize = 4096

type Region struct {
	Start, Size int32

	linear []byte
}

func (reg *Region) dup() *Region {
	child := &Region{}

	// shallow dup
	*child = *reg

	child.linear = make([]byte, len(child.linear))

	copy(child.linear, reg.linear)

	return child
}

func (reg *Region) Contains(x int32) bool {
	if x < reg.Start {
		return false
	}

	if x >= reg.Start+reg.Size {
		return false
	}

	return true
}

func pageRound(sz int32) int32 {
	if sz < PageSize {
		return PageSize
	}

	diff := sz % PageSize
	if diff == 0 {
		return sz
	}

	return sz + (PageSize - diff)
}

func (reg *Region) Project(addr, sz int32) []byte {
	offset := addr - reg.Start

	if len(reg.linear) == 0 {
		reg.linear = make([]byte, pageRound(offset+sz))
	}

	if len(reg.linear) < int(offset+sz) {
		slice := make([]byte, pageRound(offset+sz))
		copy(slice, reg.linear)

		reg.linear = slice
	}

	return reg.linear[offset : offset+sz]
}

// VirtualMemory is one process's address space: a flat set of regions
// that fork duplicates wholesale. Out-of-region accesses fail with
// ErrInvalidMemoryAccess, which syscall handlers surface as EFAULT.
type VirtualMemory struct {
	regions []*Region

	size int32
}

func NewVirtualMemory() *VirtualMemory {
	return &VirtualMemory{}
}

func (vm *VirtualMemory) Fork() *VirtualMemory {
	child := &VirtualMemory{
		size:    vm.size,
		regions: make([]*Region, len(vm.regions)),
	}

	for i, reg := range vm.regions {
		child.regions[i] = reg.dup()
	}

	return child
}

func (vm *VirtualMemory) Size() int {
	return int(vm.size)
}

func (vm *VirtualMemory) FindRegion(addr int32) (*Region, bool) {
	for _, reg := range vm.regions {
		if reg.Contains(addr) {
			return reg, true
		}
	}

	return nil, false
}

var ErrInvalidMemoryAccess = errors.New("invalid memory access")

func (vm *VirtualMemory) Project(addr, sz int32) ([]byte, error) {
	reg, ok := vm.FindRegion(addr)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidMemoryAccess, "error projecting address=%x, size=%x", addr, sz)
	}

	if !reg.Contains(addr + sz - 1) {
		return nil, errors.Wrapf(ErrInvalidMemoryAccess, "error projecting address=%x, size=%x", addr, sz)
	}

	return reg.Project(addr, sz), nil
}

var ErrBadRegionRequest = errors.New("bad region request")

func (vm *VirtualMemory) NewRegion(addr, size int32) (*Region, error) {
	if reg, ok := vm.FindRegion(addr); ok {
		if reg.Size < size {
			return nil, ErrBadRegionRequest
		}

		return reg, nil
	}

	reg := &Region{
		Start: addr,
		Size:  size,
	}

	vm.regions = append(vm.regions, reg)

	vm.size += size

	return reg, nil
}

// ReadAt implements io.ReaderAt over the address space.
func (vm *VirtualMemory) ReadAt(b []byte, off int64) (int, error) {
	mem, err := vm.Project(int32(off), int32(len(b)))
	if err != nil {
		return 0, err
	}

	return copy(b, mem), nil
}

// WriteAt implements io.WriterAt over the address space.
func (vm *VirtualMemory) WriteAt(b []byte, off int64) (int, error) {
	mem, err := vm.Project(int32(off), int32(len(b)))
	if err != nil {
		return 0, err
	}

	return copy(mem, b), nil
}
