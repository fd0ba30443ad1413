package pmm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/mos-project/mos-core/internal/bits"
	"github.com/mos-project/mos-core/internal/dirty"
	"github.com/mos-project/mos-core/internal/mmfile"
	"github.com/mos-project/mos-core/mm/frame"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("pmm: memory closed")

	// ErrNotAllocated is returned by Frame for an address that is not the
	// start of a live allocation.
	ErrNotAllocated = errors.New("pmm: address is not an allocated frame")
)

// Frames is one allocation: its address and the memory behind it.
// len(Data) is the block size, which may exceed the requested size.
type Frames struct {
	Addr frame.Addr
	Data []byte
}

// Memory is a mapped region managed by a frame allocator.
type Memory struct {
	mu     sync.Mutex // guards data, tracker, closed
	data   []byte
	start  uint64 // address of data[0]
	file   *os.File
	unmap  func() error
	closed bool

	fa      *frame.Locked
	tracker dirty.FlushableTracker // nil for anonymous memory
	zero    bool
	log     *slog.Logger
}

// Open maps a region as described by opts and installs a frame allocator
// over it.
func Open(opts Options) (*Memory, error) {
	if opts.Size == 0 {
		return nil, fmt.Errorf("%w: zero region size", frame.ErrInvalidArgument)
	}
	if opts.Size > uint64(^uint(0)>>1) {
		return nil, fmt.Errorf("%w: region of %d bytes cannot be mapped", frame.ErrInvalidArgument, opts.Size)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Memory{zero: opts.Zero, log: logger}

	var err error
	if opts.ImagePath != "" {
		m.data, m.file, m.unmap, err = mmfile.MapFile(opts.ImagePath, int64(opts.Size))
	} else {
		m.data, m.unmap, err = mmfile.MapAnon(int(opts.Size))
	}
	if err != nil {
		return nil, fmt.Errorf("pmm: map region: %w", err)
	}
	m.start = uint64(uintptr(unsafe.Pointer(unsafe.SliceData(m.data))))

	cfg := &frame.Config{
		PageSize: opts.PageSize,
		MaxPages: opts.MaxPages,
		Observer: opts.Observer,
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = frame.DefaultPageSize
	}
	if cfg.MaxPages == 0 && bits.IsPow2(cfg.PageSize) {
		cfg.MaxPages = max(frame.DefaultMaxPages, bits.NextPow2(opts.Size/cfg.PageSize))
	}
	if cfg.Observer == nil && opts.Logger != nil {
		cfg.Observer = frame.NewLogObserver(logger)
	}

	fa, err := frame.Init(frame.Addr(m.start), opts.Size, cfg)
	if err != nil {
		return nil, errors.Join(err, m.unmap())
	}
	m.fa = frame.NewLocked(fa)

	if m.file != nil {
		m.tracker = dirty.NewTracker(m)
	}

	logger.Debug("pmm region mapped",
		slog.String("image", opts.ImagePath),
		slog.String("base", fmt.Sprintf("0x%x", uint64(fa.Base()))),
		slog.Uint64("size", fa.Size()),
		slog.Uint64("page_size", fa.PageSize()),
	)
	return m, nil
}

// Bytes returns the whole mapped region.
func (m *Memory) Bytes() []byte { return m.data }

// FD returns the image file descriptor, or -1 for anonymous memory.
func (m *Memory) FD() int {
	if m.file == nil {
		return -1
	}
	return int(m.file.Fd())
}

// Offset returns addr's byte offset within the mapped region.
func (m *Memory) Offset(addr frame.Addr) uint64 { return uint64(addr) - m.start }

// Alloc allocates a block of at least size bytes.
func (m *Memory) Alloc(size uint64) (Frames, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Frames{}, ErrClosed
	}

	addr, err := m.fa.Allocate(size)
	if err != nil {
		return Frames{}, err
	}
	f, _ := m.framesAt(addr)
	if m.zero {
		clear(f.Data)
	}
	return f, nil
}

// Free releases the allocation at addr.
func (m *Memory) Free(addr frame.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.fa.Free(addr)
}

// Frame returns the memory of the live allocation at addr and marks it dirty.
func (m *Memory) Frame(addr frame.Addr) (Frames, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Frames{}, ErrClosed
	}
	f, ok := m.framesAt(addr)
	if !ok {
		return Frames{}, fmt.Errorf("%w: 0x%x", ErrNotAllocated, uint64(addr))
	}
	return f, nil
}

// framesAt slices the block at addr out of the mapping and records it as
// dirty. Caller holds m.mu.
func (m *Memory) framesAt(addr frame.Addr) (Frames, bool) {
	size, ok := m.fa.SizeOf(addr)
	if !ok {
		return Frames{}, false
	}
	off := m.Offset(addr)
	if m.tracker != nil {
		m.tracker.Add(int(off), int(size))
	}
	return Frames{
		Addr: addr,
		Data: m.data[off : off+size : off+size],
	}, true
}

// Flush writes every dirty frame back to the image file and syncs it.
// It is a no-op for anonymous memory.
func (m *Memory) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.flush(ctx)
}

func (m *Memory) flush(ctx context.Context) error {
	if m.tracker == nil {
		return nil
	}
	if err := m.tracker.Flush(ctx); err != nil {
		return fmt.Errorf("pmm: flush image: %w", err)
	}
	if err := m.tracker.Sync(ctx, dirty.FlushAuto); err != nil {
		return fmt.Errorf("pmm: sync image: %w", err)
	}
	return nil
}

// Stats returns allocator counters.
func (m *Memory) Stats() frame.Stats { return m.fa.Stats() }

// Blocks returns the block map in address order.
func (m *Memory) Blocks() []frame.Block { return m.fa.Blocks() }

// Check validates the allocator's invariants.
func (m *Memory) Check() error { return m.fa.Check() }

// PrintStats writes the allocator report to w.
func (m *Memory) PrintStats(w io.Writer) { m.fa.PrintStats(w) }

// Close reports outstanding allocations, flushes a file-backed image and
// unmaps the region. Every Frames slice becomes invalid. Closing twice
// returns ErrClosed.
func (m *Memory) Close() (leaks int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	m.closed = true

	leaks = m.fa.Cleanup()
	if leaks > 0 {
		st := m.fa.Stats()
		m.log.Warn("pmm frames leaked",
			slog.Int("count", leaks),
			slog.Uint64("bytes", st.UsedBytes),
		)
	}

	err = m.flush(context.Background())
	err = errors.Join(err, m.unmap())
	m.data = nil
	return leaks, err
}
