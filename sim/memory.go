package sim

import (
	"encoding/binary"
	"sort"
	"sync"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
)

const (
	heapBase  = bridge.Pointer(0x10000000)
	heapAlign = 16
	ptrSize   = 8
)

// Memory is a sparse simulated heap. Every allocation is a separate block;
// reads and writes must stay inside one block.
type Memory struct {
	blocks map[bridge.Pointer][]byte
	bases  []bridge.Pointer
	next   bridge.Pointer
	mu     sync.Mutex
}

// NewMemory creates an empty heap.
func NewMemory() *Memory {
	return &Memory{
		blocks: make(map[bridge.Pointer][]byte),
		next:   heapBase,
	}
}

// PointerSize returns the size of a pointer in bytes.
func (m *Memory) PointerSize() int {
	return ptrSize
}

// Alloc allocates size zeroed bytes.
func (m *Memory) Alloc(size int) (bridge.Pointer, error) {
	if size < 0 {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocLocked(size), nil
}

func (m *Memory) allocLocked(size int) bridge.Pointer {
	if size == 0 {
		size = 1
	}
	addr := m.next
	m.next += bridge.Pointer((size + heapAlign - 1) / heapAlign * heapAlign)
	// leave a guard gap so adjacent blocks never touch
	m.next += heapAlign
	m.blocks[addr] = make([]byte, size)
	m.bases = append(m.bases, addr)
	return addr
}

// AllocCString allocates a NUL-terminated copy of s.
func (m *Memory) AllocCString(s string) (bridge.Pointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr := m.allocLocked(len(s) + 1)
	copy(m.blocks[addr], s)
	return addr, nil
}

// Free releases the block starting at addr. Unknown addresses are ignored.
func (m *Memory) Free(addr bridge.Pointer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[addr]; !ok {
		return
	}
	delete(m.blocks, addr)
	i := sort.Search(len(m.bases), func(i int) bool { return m.bases[i] >= addr })
	m.bases = append(m.bases[:i], m.bases[i+1:]...)
}

// Live returns the number of allocated blocks.
func (m *Memory) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}

// slice returns n bytes at addr, which must lie inside a single block.
func (m *Memory) slice(addr bridge.Pointer, n int) ([]byte, error) {
	i := sort.Search(len(m.bases), func(i int) bool { return m.bases[i] > addr }) - 1
	if i < 0 {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, nil, int(addr), 0)
	}
	base := m.bases[i]
	block := m.blocks[base]
	off := int(addr - base)
	if off+n > len(block) {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, nil, off+n, len(block))
	}
	return block[off : off+n], nil
}

// ReadPointer reads a pointer at addr.
func (m *Memory) ReadPointer(addr bridge.Pointer) (bridge.Pointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.slice(addr, ptrSize)
	if err != nil {
		return 0, err
	}
	return bridge.Pointer(binary.LittleEndian.Uint64(b)), nil
}

// WritePointer writes a pointer at addr.
func (m *Memory) WritePointer(addr, value bridge.Pointer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.slice(addr, ptrSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, uint64(value))
	return nil
}

// ReadU32 reads a little-endian uint32 at addr.
func (m *Memory) ReadU32(addr bridge.Pointer) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.slice(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// WriteU32 writes a little-endian uint32 at addr.
func (m *Memory) WriteU32(addr bridge.Pointer, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.slice(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// ReadCString reads a NUL-terminated string at addr.
func (m *Memory) ReadCString(addr bridge.Pointer) (string, error) {
	if addr.IsNull() {
		return "", errors.NilPointer(errors.PhaseRuntime, nil, "string")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.bases), func(i int) bool { return m.bases[i] > addr }) - 1
	if i < 0 {
		return "", errors.OutOfBounds(errors.PhaseRuntime, nil, int(addr), 0)
	}
	block := m.blocks[m.bases[i]]
	off := int(addr - m.bases[i])
	if off >= len(block) {
		return "", errors.OutOfBounds(errors.PhaseRuntime, nil, off, len(block))
	}
	for j := off; j < len(block); j++ {
		if block[j] == 0 {
			return string(block[off:j]), nil
		}
	}
	return "", errors.InvalidData(errors.PhaseRuntime, nil, "unterminated string")
}
