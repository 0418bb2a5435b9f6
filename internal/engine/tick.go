package engine

// TickReport is everything a tick produced: one outcome per submitted
// command (in submission order) plus the version the broadcast should be
// stamped with.
type TickReport struct {
	Outcomes []Outcome
	Version  uint64
}

// clampKind distinguishes how a command's anchor(s) participate in
// clamping against the deleted-range set (§4.4).
type clampKind uint8

const (
	clampNone clampKind = iota
	clampStartOnly
	clampStartEnd
)

func (k CommandKind) clamp() clampKind {
	switch k {
	case InlineBold, InlineItalic, InlineCode, InlineLink:
		return clampStartEnd
	case Delete, Malformed:
		return clampNone
	default:
		return clampStartOnly
	}
}

// ApplyTick runs one full COLLECTING->BROADCASTING cycle against cmds,
// which must already be insertion-sorted by (Timestamp, Seq) — the
// SORTING state is a no-op assertion, not a sort, per spec.
//
// The document is mutated in place and a fresh snapshot is committed
// before returning. Per-command failure is always local: a bad command
// never aborts the tick, it just resolves to a non-success Outcome.
func (d *Document) ApplyTick(cmds []Command) TickReport {
	assertSorted(cmds)

	outcomes := make([]Outcome, len(cmds))

	type pending struct {
		idx int
		cmd Command
	}

	var toClamp []pending

	snapshotLen := d.numCharacters

	// Pass 1: role filter + structural validation + delete-range collection.
	for i, cmd := range cmds {
		outcomes[i] = Outcome{Command: cmd}

		if cmd.Role != RoleWrite {
			outcomes[i].Status = StatusRejectUnauthorised

			continue
		}

		if status, ok := validateStructure(cmd, snapshotLen); !ok {
			outcomes[i].Status = status

			continue
		}

		if cmd.Kind == Delete {
			clampedLen := cmd.Length
			if clampedLen > snapshotLen-cmd.SnapPos {
				clampedLen = snapshotLen - cmd.SnapPos
			}

			if clampedLen > 0 {
				d.deletedRanges.insert(cmd.SnapPos, cmd.SnapPos+clampedLen)
			}

			outcomes[i].Status = StatusSuccess

			continue
		}

		toClamp = append(toClamp, pending{idx: i, cmd: cmd})
	}

	// Pass 2: clamp remaining commands' anchors against the now-final
	// deleted-range set.
	var toApply []pending

	for _, p := range toClamp {
		cmd := p.cmd

		switch cmd.Kind.clamp() {
		case clampStartOnly:
			if r, ok := d.deletedRanges.contains(cmd.SnapPos); ok {
				cmd.SnapPos = r.Start
			}
		case clampStartEnd:
			startRange, startIn := startInside(&d.deletedRanges, cmd.SnapPos)
			endRange, endIn := endInside(&d.deletedRanges, cmd.EndPos)

			if startIn && endIn {
				outcomes[p.idx].Status = StatusDeletedPosition

				continue
			}

			if startIn {
				cmd.SnapPos = startRange.Start
			}

			if endIn {
				cmd.EndPos = endRange.End
			}

			if cmd.SnapPos >= cmd.EndPos {
				outcomes[p.idx].Status = StatusInvalidCursorPos

				continue
			}
		}

		toApply = append(toApply, pending{idx: p.idx, cmd: cmd})
	}

	// Pass 3: apply all deletes first (coalesced ranges, any order).
	for _, r := range d.deletedRanges.sorted() {
		workingPos := mapToWorking(d.metaLog, r.Start)
		d.naiveDelete(workingPos, r.Start, r.End-r.Start)
	}

	// Pass 4: apply everything else, in original queue order.
	for _, p := range toApply {
		outcomes[p.idx].Status = d.applyOne(p.cmd)
	}

	anySuccess := false

	for _, o := range outcomes {
		if o.Status == StatusSuccess {
			anySuccess = true

			break
		}
	}

	d.commit(anySuccess)

	return TickReport{Outcomes: outcomes, Version: d.version}
}

// applyOne maps a single already-clamped command's snapshot positions to
// working-buffer positions and invokes the matching naive op.
func (d *Document) applyOne(cmd Command) Status {
	switch cmd.Kind {
	case Insert:
		return d.naiveInsert(mapToWorking(d.metaLog, cmd.SnapPos), cmd.SnapPos, cmd.Content)
	case Newline:
		return d.naiveNewline(mapToWorking(d.metaLog, cmd.SnapPos), cmd.SnapPos)
	case BlockHeading:
		return d.naiveHeading(cmd.HeadingLevel, mapToWorking(d.metaLog, cmd.SnapPos), cmd.SnapPos)
	case BlockBlockquote:
		return d.naiveBlockquote(mapToWorking(d.metaLog, cmd.SnapPos), cmd.SnapPos)
	case BlockUL:
		return d.naiveUnorderedList(mapToWorking(d.metaLog, cmd.SnapPos), cmd.SnapPos)
	case BlockOL:
		return d.naiveOrderedList(mapToWorking(d.metaLog, cmd.SnapPos), cmd.SnapPos)
	case BlockHRule:
		return d.naiveHorizontalRule(mapToWorking(d.metaLog, cmd.SnapPos), cmd.SnapPos)
	case InlineBold:
		return d.naiveBold(
			mapToWorking(d.metaLog, cmd.SnapPos), mapToWorking(d.metaLog, cmd.EndPos),
			cmd.SnapPos, cmd.EndPos,
		)
	case InlineItalic:
		return d.naiveItalic(
			mapToWorking(d.metaLog, cmd.SnapPos), mapToWorking(d.metaLog, cmd.EndPos),
			cmd.SnapPos, cmd.EndPos,
		)
	case InlineCode:
		return d.naiveCode(
			mapToWorking(d.metaLog, cmd.SnapPos), mapToWorking(d.metaLog, cmd.EndPos),
			cmd.SnapPos, cmd.EndPos,
		)
	case InlineLink:
		return d.naiveLink(
			mapToWorking(d.metaLog, cmd.SnapPos), mapToWorking(d.metaLog, cmd.EndPos),
			cmd.SnapPos, cmd.EndPos, cmd.Content,
		)
	default:
		return StatusInvalidCursorPos
	}
}

// validateStructure checks the bound/shape rules that are independent of
// the deleted-range set: anchor beyond snapshot length, an inverted or
// empty inline range, an out-of-range heading level, or a missing link URL.
func validateStructure(cmd Command, snapshotLen int) (Status, bool) {
	if cmd.Kind == Malformed {
		return StatusMalformed, false
	}

	if cmd.SnapPos > snapshotLen {
		return StatusInvalidCursorPos, false
	}

	switch cmd.Kind {
	case InlineBold, InlineItalic, InlineCode, InlineLink:
		if cmd.EndPos > snapshotLen || cmd.EndPos <= cmd.SnapPos {
			return StatusInvalidCursorPos, false
		}

		if cmd.Kind == InlineLink && len(cmd.Content) == 0 {
			return StatusInvalidCursorPos, false
		}
	case BlockHeading:
		if cmd.HeadingLevel < 1 || cmd.HeadingLevel > 3 {
			return StatusInvalidCursorPos, false
		}
	case Delete:
		if cmd.Length < 0 {
			return StatusInvalidCursorPos, false
		}
	}

	return StatusSuccess, true
}

// startInside tests start-anchor clamping: pos in [range.Start, range.End).
// A start sitting exactly at a range's end is past the deleted span
// (ranges are half-open) and is left unclamped.
func startInside(rs *rangeSet, pos int) (Range, bool) {
	return rs.contains(pos)
}

// endInside tests end-anchor clamping: pos in (range.Start, range.End].
// An end anchor denotes an exclusive selection boundary, so it reads as
// "inside" one position later than a start anchor would — equal to a
// range's start is outside (the selection stops where the deletion
// begins), and equal to a range's end means the selection's last real
// byte was deleted too.
func endInside(rs *rangeSet, pos int) (Range, bool) {
	for _, r := range rs.sorted() {
		if pos > r.Start && pos <= r.End {
			return r, true
		}
	}

	return Range{}, false
}

// assertSorted is the SORTING state: a no-op assertion that the queue
// arrived pre-sorted by (Timestamp, Seq). It panics rather than silently
// reordering, since a violation means the collector has a bug.
func assertSorted(cmds []Command) {
	for i := 1; i < len(cmds); i++ {
		prev, cur := cmds[i-1], cmds[i]
		if cur.Timestamp.Less(prev.Timestamp) || (cur.Timestamp == prev.Timestamp && cur.Seq < prev.Seq) {
			panic("engine: command queue is not insertion-sorted by (timestamp, seq)")
		}
	}
}

// commit is the COMMITTING state: re-flatten the chunk store into a fresh
// snapshot, clear the per-tick logs, and bump the version if at least one
// command succeeded this tick.
func (d *Document) commit(anySuccess bool) {
	d.snapshot = d.flatten()
	d.snapshotLen = len(d.snapshot)

	d.metaLog = nil
	d.deletedRanges = rangeSet{}

	if anySuccess {
		d.version++
	}
}
