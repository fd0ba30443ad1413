package frame

// push links idx at the head of level's free list. No-op on nilIndex.
func (a *BuddyAllocator) push(level Level, idx int32) {
	if idx == nilIndex {
		return
	}
	a.blocks[idx].next = a.heads[level]
	a.heads[level] = idx
}

// unlink removes idx from level's free list wherever it occurs.
// No-op on nilIndex or when idx is not enlisted at that level.
// free and pages are left untouched.
func (a *BuddyAllocator) unlink(level Level, idx int32) {
	if idx == nilIndex {
		return
	}

	if a.heads[level] == idx {
		a.heads[level] = a.blocks[idx].next
		a.blocks[idx].next = nilIndex
		return
	}

	for cur := a.heads[level]; cur != nilIndex; cur = a.blocks[cur].next {
		if a.blocks[cur].next == idx {
			a.blocks[cur].next = a.blocks[idx].next
			a.blocks[idx].next = nilIndex
			return
		}
	}
}

// pop removes and returns the head of level's free list, or nilIndex.
func (a *BuddyAllocator) pop(level Level) int32 {
	idx := a.heads[level]
	if idx != nilIndex {
		a.heads[level] = a.blocks[idx].next
		a.blocks[idx].next = nilIndex
	}
	return idx
}

// listLen counts level's free list. Stops after limit entries so a corrupted
// (cyclic) list cannot hang the caller.
func (a *BuddyAllocator) listLen(level Level, limit int) int {
	n := 0
	for cur := a.heads[level]; cur != nilIndex && n <= limit; cur = a.blocks[cur].next {
		n++
	}
	return n
}
