package engine

// MetaEntry records that an earlier-applied command shifted the working
// buffer by offset bytes, anchored at a position in the snapshot frame.
type MetaEntry struct {
	SnapshotPos int
	Offset      int
}

// mapToWorking translates a snapshot-frame position to the working-buffer
// position, given everything recorded in the meta-log so far:
//
//	p_w = p_s + sum(offset(e) : e in metaLog, e.SnapshotPos < p_s)
//
// clamped at zero. Entries anchored at or after p_s never apply: later
// inserts have not yet shifted p_s's location, and deletes at or after it
// are handled by the caller's clamping pass, not by this mapping.
func mapToWorking(metaLog []MetaEntry, snapshotPos int) int {
	pw := snapshotPos

	for _, e := range metaLog {
		if e.SnapshotPos < snapshotPos {
			pw += e.Offset
		}
	}

	if pw < 0 {
		return 0
	}

	return pw
}
