package engine

// Document is the chunk store plus the bookkeeping a single tick needs:
// the immutable snapshot readers see between ticks, the meta-log that
// translates snapshot positions to working positions mid-tick, and the
// deleted-range set used to clamp formatting commands against
// concurrently-requested deletions.
//
// Document is not safe for concurrent use on its own; callers serialize
// access to it the way the teacher's document mutex does (see
// internal/transport), acquiring it for the whole of one tick.
type Document struct {
	chunks []chunk
	free   []int

	head, tail    int
	numChunks     int
	numCharacters int

	snapshot    []byte
	snapshotLen int

	metaLog       []MetaEntry
	deletedRanges rangeSet

	version uint64
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{head: noChunk, tail: noChunk}
}

// NumCharacters returns the total number of valid bytes across all chunks.
func (d *Document) NumCharacters() int { return d.numCharacters }

// NumChunks returns the number of live chunks.
func (d *Document) NumChunks() int { return d.numChunks }

// Version returns the document's current committed version.
func (d *Document) Version() uint64 { return d.version }

// Snapshot returns the byte image published at the last commit. The
// returned slice must not be mutated by the caller.
func (d *Document) Snapshot() []byte { return d.snapshot }

// allocChunk returns a fresh or recycled arena slot holding c.
func (d *Document) allocChunk(c chunk) int {
	if n := len(d.free); n > 0 {
		idx := d.free[n-1]
		d.free = d.free[:n-1]
		d.chunks[idx] = c

		return idx
	}

	d.chunks = append(d.chunks, c)

	return len(d.chunks) - 1
}

// freeChunk recycles a chunk's arena slot.
func (d *Document) freeChunk(idx int) {
	d.chunks[idx] = chunk{}
	d.free = append(d.free, idx)
}

// linkAfter splices newIdx into the list immediately after afterIdx.
// afterIdx == noChunk inserts at the head.
func (d *Document) linkAfter(afterIdx, newIdx int) {
	nc := &d.chunks[newIdx]

	if afterIdx == noChunk {
		nc.next = d.head
		nc.prev = noChunk

		if d.head != noChunk {
			d.chunks[d.head].prev = newIdx
		}

		d.head = newIdx
		if d.tail == noChunk {
			d.tail = newIdx
		}

		return
	}

	ac := &d.chunks[afterIdx]
	nc.prev = afterIdx
	nc.next = ac.next

	if ac.next != noChunk {
		d.chunks[ac.next].prev = newIdx
	} else {
		d.tail = newIdx
	}

	ac.next = newIdx
}

// unlink removes idx from the list without freeing its slot.
func (d *Document) unlink(idx int) {
	c := &d.chunks[idx]

	if c.prev != noChunk {
		d.chunks[c.prev].next = c.next
	} else {
		d.head = c.next
	}

	if c.next != noChunk {
		d.chunks[c.next].prev = c.prev
	} else {
		d.tail = c.prev
	}
}

// appendChunk links a new chunk at the tail and updates counters.
func (d *Document) appendChunk(c chunk) int {
	idx := d.allocChunk(c)
	d.linkAfter(d.tail, idx)
	d.numChunks++
	d.numCharacters += d.chunks[idx].length

	return idx
}

// insertChunkAfter links a new chunk after afterIdx and updates counters.
func (d *Document) insertChunkAfter(afterIdx int, c chunk) int {
	idx := d.allocChunk(c)
	d.linkAfter(afterIdx, idx)
	d.numChunks++
	d.numCharacters += d.chunks[idx].length

	return idx
}

// removeChunk unlinks and frees a chunk, adjusting counters.
func (d *Document) removeChunk(idx int) {
	d.numCharacters -= d.chunks[idx].length
	d.numChunks--
	d.unlink(idx)
	d.freeChunk(idx)
}

// locate walks the chunk list summing lengths and returns the chunk whose
// span contains pos, plus the local offset within that chunk. pos ==
// numCharacters resolves to the tail chunk with local == tail.length (the
// append position, including when the document is empty).
func (d *Document) locate(pos int) (int, int) {
	cum := 0
	idx := d.head

	for idx != noChunk {
		c := &d.chunks[idx]
		if pos < cum+c.length || c.next == noChunk {
			local := pos - cum
			if local > c.length {
				local = c.length
			}

			return idx, local
		}

		cum += c.length
		idx = c.next
	}

	return noChunk, 0
}

// splitLineAt splits chunk idx at local offset: the prefix keeps text[:local]
// plus a freshly written '\n' boundary, and the original text[local:] moves
// to a new successor PLAIN chunk (possibly empty, when local == length). A
// local of 0 is a no-op (pos already sits at a line start). If an OL run
// follows the new PLAIN chunk, that run restarts numbering at 1.
func (d *Document) splitLineAt(idx, local int) int {
	c := &d.chunks[idx]
	if local <= 0 {
		return idx
	}

	oldLen := c.length
	suffixLen := c.length - local
	suffix := make([]byte, suffixLen)
	copy(suffix, c.buf[local:c.length])

	c.length = local
	c.insertBytes(local, []byte{'\n'})
	d.numCharacters += c.length - oldLen

	newIdx := d.insertChunkAfter(idx, newChunk(Plain, suffix))

	if next := d.chunks[newIdx].next; next != noChunk && d.chunks[next].typ == OrderedListItem {
		d.renumberFrom(next)
	}

	return newIdx
}

// ensureLineStart splits at pos if it lands mid-chunk and returns the index
// of the chunk that now starts exactly at pos.
func (d *Document) ensureLineStart(pos int) int {
	idx, local := d.locate(pos)
	if local == 0 {
		return idx
	}

	return d.splitLineAt(idx, local)
}

// prevOLIndex returns the OL index of idx's predecessor if it is itself an
// OrderedListItem, else 0 (the tie-break: a run restarts at 1 after any
// non-OL chunk, including none at all).
func (d *Document) prevOLIndex(idx int) int {
	prev := d.chunks[idx].prev
	if prev == noChunk || d.chunks[prev].typ != OrderedListItem {
		return 0
	}

	return d.chunks[prev].indexOL
}

// renumberFrom walks forward from idx while chunks are OrderedListItem,
// assigning 1,2,3,... capped at 9, starting from prevOLIndex(idx)+1, and
// rewrites each chunk's "N. " prefix to match.
func (d *Document) renumberFrom(idx int) {
	if idx == noChunk {
		return
	}

	next := d.prevOLIndex(idx) + 1

	for cur := idx; cur != noChunk; {
		c := &d.chunks[cur]
		if c.typ != OrderedListItem {
			break
		}

		n := next
		if n > 9 {
			n = 9
		}

		c.indexOL = n
		copy(c.buf[0:3], ordinalPrefix(n))

		next++
		cur = c.next
	}
}

// flatten concatenates all live chunks in link order into a single buffer,
// becoming the next committed snapshot.
func (d *Document) flatten() []byte {
	out := make([]byte, 0, d.numCharacters)

	for idx := d.head; idx != noChunk; idx = d.chunks[idx].next {
		out = append(out, d.chunks[idx].text()...)
	}

	return out
}

// render writes the full document text to a byte slice the same way
// flatten does: the current working text mid-tick rather than the last
// committed snapshot. It is unexported and has no callers; DOC? output
// comes from Snapshot.
func (d *Document) render() []byte {
	return d.flatten()
}

// Seed publishes data as the document's committed snapshot without
// running a tick, for callers that build a Document out-of-band (from a
// persisted snapshot file, or a client's handshake payload) via
// ParseDocument and then need Snapshot/NumCharacters to agree with the
// chunks already appended.
func (d *Document) Seed(data []byte) {
	d.snapshot = append([]byte(nil), data...)
	d.snapshotLen = len(d.snapshot)
}
