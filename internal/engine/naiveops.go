package engine

// Naive per-kind editors. Each takes already-mapped working-buffer
// positions (and the snapshot-frame anchor the meta-log entry is keyed
// on) and mutates the chunk store in place. They never see a raw
// client-submitted position directly — clamping and snapshot->working
// mapping both happen in the tick pipeline before these are called.

const (
	boldDelim   = "**"
	italicDelim = "*"
	codeDelim   = "`"
)

func (d *Document) appendMeta(snapPos, offset int) {
	if offset == 0 {
		return
	}

	d.metaLog = append(d.metaLog, MetaEntry{SnapshotPos: snapPos, Offset: offset})
}

// naiveInsert splices bytes into the chunk store at workingPos.
func (d *Document) naiveInsert(workingPos, snapPos int, data []byte) Status {
	if d.numChunks == 0 {
		if workingPos != 0 {
			return StatusInvalidCursorPos
		}

		d.appendChunk(newChunk(Plain, data))
		d.appendMeta(snapPos, len(data))

		return StatusSuccess
	}

	idx, local := d.locate(workingPos)
	d.chunks[idx].insertBytes(local, data)
	d.numCharacters += len(data)
	d.appendMeta(snapPos, len(data))

	return StatusSuccess
}

// naiveDelete removes up to length bytes starting at workingPos, spanning
// chunks as needed, merging the surviving head/tail remainders, and
// downgrading any OL item whose "N. " prefix is clipped. length is
// clamped to what is actually available from workingPos onward (this is
// what makes two overlapping/duplicate deletes in one batch idempotent:
// the second delete simply finds nothing left to remove).
func (d *Document) naiveDelete(workingPos, snapPos, length int) Status {
	if length <= 0 || d.numChunks == 0 {
		return StatusSuccess
	}

	startIdx, startLocal := d.locate(workingPos)
	remaining := length
	deleted := 0
	olDowngraded := false

	cur := startIdx
	curLocal := startLocal

	for remaining > 0 && cur != noChunk {
		c := &d.chunks[cur]
		avail := c.length - curLocal
		take := remaining
		if take > avail {
			take = avail
		}

		if take > 0 {
			if curLocal < 3 && c.typ == OrderedListItem {
				c.typ = Plain
				c.indexOL = 0
				olDowngraded = true
			}

			c.deleteBytes(curLocal, take)
			d.numCharacters -= take
			deleted += take
			remaining -= take
		}

		if c.length == 0 {
			next := c.next
			d.removeChunk(cur)
			cur = next
			curLocal = 0

			continue
		}

		if remaining == 0 {
			break
		}

		next := c.next
		if next == noChunk {
			break
		}

		cur = next
		curLocal = 0
	}

	// Merge the start chunk's head remainder with the tail remainder of
	// the final spanned chunk, if the span crossed a chunk boundary and
	// the start chunk survived (freeChunk zeroes removed slots, so a
	// removed startIdx reads back as length 0 and this is skipped).
	if cur != noChunk && cur != startIdx && d.chunks[startIdx].length > 0 {
		d.mergeChunks(startIdx, cur)
	}

	if olDowngraded {
		if d.chunks[startIdx].length > 0 {
			d.downgradeAndRenumber(startIdx)
		} else if cur != noChunk && d.chunks[cur].typ == OrderedListItem {
			d.renumberFrom(cur)
		}
	}

	d.appendMeta(snapPos, -deleted)

	return StatusSuccess
}

// mergeChunks appends b's text onto a and removes b, used when a delete
// spans a chunk boundary and leaves two remainders that now form one line.
func (d *Document) mergeChunks(a, b int) {
	if a == b {
		return
	}

	bText := append([]byte(nil), d.chunks[b].text()...)
	d.chunks[a].insertBytes(d.chunks[a].length, bText)
	d.numCharacters += len(bText)
	d.removeChunk(b)
}

// downgradeAndRenumber runs after a delete clipped an OL prefix: it clears
// OL status on idx if fewer than three bytes of it remain, and renumbers
// the OL run that follows idx (from 1 when idx is not itself an OL item).
func (d *Document) downgradeAndRenumber(idx int) {
	c := &d.chunks[idx]
	if c.typ == OrderedListItem && c.length < 3 {
		c.typ = Plain
		c.indexOL = 0
	}

	if next := c.next; next != noChunk && d.chunks[next].typ == OrderedListItem {
		d.chunks[next].indexOL = 1
		d.renumberFrom(next)
	}
}

// naiveNewline splits the current line at workingPos, inserting a '\n'
// boundary; the new line is PLAIN, so an OL run after it restarts at 1.
func (d *Document) naiveNewline(workingPos, snapPos int) Status {
	idx, local := d.locate(workingPos)
	if idx == noChunk {
		return d.naiveInsert(workingPos, snapPos, []byte{'\n'})
	}

	before := d.numCharacters
	d.splitLineAt(idx, local)
	d.appendMeta(snapPos, d.numCharacters-before)

	return StatusSuccess
}

// prefixLine ensures pos sits at a line start (splitting if needed, with
// its own meta entry), then prepends prefix and sets the chunk's type.
func (d *Document) prefixLine(workingPos, snapPos int, prefix string, typ ChunkType) int {
	before := d.numCharacters
	idx := d.ensureLineStart(workingPos)
	d.appendMeta(snapPos, d.numCharacters-before)

	if idx == noChunk {
		idx = d.appendChunk(newChunk(typ, []byte(prefix)))
		d.appendMeta(snapPos, len(prefix))

		return idx
	}

	d.chunks[idx].insertBytes(0, []byte(prefix))
	d.numCharacters += len(prefix)
	d.chunks[idx].typ = typ
	d.appendMeta(snapPos, len(prefix))

	return idx
}

func (d *Document) naiveHeading(level, workingPos, snapPos int) Status {
	var prefix string

	var typ ChunkType

	switch level {
	case 1:
		prefix, typ = "# ", Heading1
	case 2:
		prefix, typ = "## ", Heading2
	case 3:
		prefix, typ = "### ", Heading3
	default:
		return StatusInvalidCursorPos
	}

	idx := d.prefixLine(workingPos, snapPos, prefix, typ)
	d.chunks[idx].indexOL = 0

	return StatusSuccess
}

func (d *Document) naiveBlockquote(workingPos, snapPos int) Status {
	d.prefixLine(workingPos, snapPos, "> ", Blockquote)

	return StatusSuccess
}

func (d *Document) naiveUnorderedList(workingPos, snapPos int) Status {
	d.prefixLine(workingPos, snapPos, "- ", UnorderedListItem)

	return StatusSuccess
}

// naiveOrderedList formats the line at workingPos as an ordered-list item.
// If that line is already a complete OL item (the anchor sits at the start
// of an existing numbered line, the shape repeated ORDERED_LIST calls at a
// single position produce within one tick), prepending another "N. " onto
// it would just mangle the line's text, so a fresh item is spliced in
// immediately before it instead and the run renumbers from there. Otherwise
// the line is an ordinary prefix target, same as heading/blockquote/UL.
func (d *Document) naiveOrderedList(workingPos, snapPos int) Status {
	before := d.numCharacters
	idx := d.ensureLineStart(workingPos)
	d.appendMeta(snapPos, d.numCharacters-before)

	if idx != noChunk && d.chunks[idx].typ == OrderedListItem {
		return d.insertOLBefore(idx, snapPos)
	}

	prevIdx := 0
	if idx != noChunk {
		prevIdx = d.prevOLIndex(idx)
	}

	n := prevIdx + 1
	if n > 9 {
		n = 9
	}

	prefix := ordinalPrefix(n)

	if idx == noChunk {
		idx = d.appendChunk(newChunk(OrderedListItem, []byte(prefix)))
	} else {
		d.chunks[idx].insertBytes(0, []byte(prefix))
		d.numCharacters += len(prefix)
		d.chunks[idx].typ = OrderedListItem
	}

	d.chunks[idx].indexOL = n
	d.appendMeta(snapPos, len(prefix))
	d.renumberFrom(idx)

	return StatusSuccess
}

// insertOLBefore splices a new, bare "N. " item immediately before idx and
// renumbers the run starting there; renumberFrom overwrites n's initial
// value for every chunk from the splice point on, so the exact number
// computed here only matters for the single-chunk case.
func (d *Document) insertOLBefore(idx, snapPos int) Status {
	prevIdx := d.prevOLIndex(idx)

	n := prevIdx + 1
	if n > 9 {
		n = 9
	}

	prefix := ordinalPrefix(n)

	c := newChunk(OrderedListItem, []byte(prefix))
	c.indexOL = n

	newIdx := d.insertChunkAfter(d.chunks[idx].prev, c)
	d.appendMeta(snapPos, len(prefix))
	d.renumberFrom(newIdx)

	return StatusSuccess
}

func (d *Document) naiveHorizontalRule(workingPos, snapPos int) Status {
	before := d.numCharacters
	idx := d.ensureLineStart(workingPos)
	d.appendMeta(snapPos, d.numCharacters-before)

	hr := newChunk(HorizontalRule, []byte("---\n"))

	if idx == noChunk {
		d.appendChunk(hr)
	} else {
		d.insertChunkAfter(d.chunks[idx].prev, hr)
	}

	d.appendMeta(snapPos, 4)

	return StatusSuccess
}

// naiveInlineDelim inserts the closing delimiter at workingEnd first, then
// the opening delimiter at workingStart, so the opening insert can never
// shift workingEnd.
func (d *Document) naiveInlineDelim(workingStart, workingEnd, snapStart, snapEnd int, delim string) Status {
	d.naiveInsert(workingEnd, snapEnd, []byte(delim))
	d.naiveInsert(workingStart, snapStart, []byte(delim))

	return StatusSuccess
}

func (d *Document) naiveBold(workingStart, workingEnd, snapStart, snapEnd int) Status {
	return d.naiveInlineDelim(workingStart, workingEnd, snapStart, snapEnd, boldDelim)
}

func (d *Document) naiveItalic(workingStart, workingEnd, snapStart, snapEnd int) Status {
	return d.naiveInlineDelim(workingStart, workingEnd, snapStart, snapEnd, italicDelim)
}

func (d *Document) naiveCode(workingStart, workingEnd, snapStart, snapEnd int) Status {
	return d.naiveInlineDelim(workingStart, workingEnd, snapStart, snapEnd, codeDelim)
}

func (d *Document) naiveLink(workingStart, workingEnd, snapStart, snapEnd int, url []byte) Status {
	closing := append([]byte("]("), append(append([]byte(nil), url...), ')')...)
	d.naiveInsert(workingEnd, snapEnd, closing)
	d.naiveInsert(workingStart, snapStart, []byte("["))

	return StatusSuccess
}
