/*
Package pmm runs the buddy frame allocator over real memory.

A Memory maps a backing region (anonymous memory, or a RAM image file when
Options.ImagePath is set), installs a frame allocator over the mapping's
actual addresses, and hands out frames as byte slices.

# Quick Start

	mem, err := pmm.Open(pmm.Options{Size: 16 << 20})
	if err != nil {
	    return err
	}
	defer mem.Close()

	f, err := mem.Alloc(3 * 4096) // a 16 KB frame
	if err != nil {
	    return err
	}
	copy(f.Data, payload)

	if err := mem.Free(f.Addr); err != nil {
	    return err
	}

# Persistent Images

With ImagePath set, the region is a shared mapping of that file. Frames
handed out by Alloc and re-sliced by Frame are recorded as dirty; Flush
writes exactly those pages back and syncs the file:

	mem, _ := pmm.Open(pmm.Options{Size: 64 << 20, ImagePath: "ram.img"})
	f, _ := mem.Alloc(4096)
	copy(f.Data, "hello")
	_ = mem.Flush(ctx)

The block table itself is not persisted. Reopening an image starts with an
empty allocator over the old contents.

# Leaks

Close reports allocations that were never freed and logs them through
Options.Logger before unmapping the region.

# Thread Safety

Memory is safe for concurrent use. Allocation goes through frame.Locked.
*/
package pmm
