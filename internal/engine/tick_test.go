package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ts(sec int64, seq int) Command {
	return Command{Timestamp: Timestamp{Sec: sec}, Seq: seq, Role: RoleWrite}
}

func insertCmd(sec int64, seq, pos int, text string) Command {
	c := ts(sec, seq)
	c.Kind = Insert
	c.SnapPos = pos
	c.Content = []byte(text)

	return c
}

func delCmd(sec int64, seq, pos, length int) Command {
	c := ts(sec, seq)
	c.Kind = Delete
	c.SnapPos = pos
	c.Length = length

	return c
}

func headingCmd(sec int64, seq, level, pos int) Command {
	c := ts(sec, seq)
	c.Kind = BlockHeading
	c.SnapPos = pos
	c.HeadingLevel = level

	return c
}

func boldCmd(sec int64, seq, start, end int) Command {
	c := ts(sec, seq)
	c.Kind = InlineBold
	c.SnapPos = start
	c.EndPos = end

	return c
}

// Scenario 1: INSERT 0 "Hello\n" on an empty document.
func TestScenario1Insert(t *testing.T) {
	d := NewDocument()
	rep := d.ApplyTick([]Command{insertCmd(1, 0, 0, "Hello\n")})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, "Hello\n", string(d.Snapshot()))
	require.Equal(t, uint64(1), rep.Version)
}

// Scenario 2: after (1), HEADING 1 0 -> "# Hello\n", version 2.
func TestScenario2Heading(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "Hello\n")})

	rep := d.ApplyTick([]Command{headingCmd(2, 0, 1, 0)})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, "# Hello\n", string(d.Snapshot()))
	require.Equal(t, uint64(2), rep.Version)
}

// Scenario 3: after (2), BOLD 2 7 -> "# **Hello**\n", version 3.
func TestScenario3Bold(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "Hello\n")})
	d.ApplyTick([]Command{headingCmd(2, 0, 1, 0)})

	rep := d.ApplyTick([]Command{boldCmd(3, 0, 2, 7)})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, "# **Hello**\n", string(d.Snapshot()))
	require.Equal(t, uint64(3), rep.Version)
}

// Scenario 4: fresh doc, one tick with INSERT 0 abcdef, DEL 1 2, BOLD 0 3
// in that submission order. All three anchors are interpreted against the
// pre-tick snapshot, which is empty (snapshot_len == 0): INSERT at 0
// succeeds (0 is always a valid append position), DEL's anchor (1) and
// BOLD's end anchor (3) both exceed snapshot_len and are rejected. This is
// why scenarios 1-3 build up the same document across three separate
// ticks instead of one: a command can only format text a prior tick
// already committed.
func TestScenario4MixedBatch(t *testing.T) {
	d := NewDocument()

	rep := d.ApplyTick([]Command{
		insertCmd(1, 0, 0, "abcdef"),
		delCmd(1, 1, 1, 2),
		boldCmd(1, 2, 0, 3),
	})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, StatusInvalidCursorPos, rep.Outcomes[1].Status)
	require.Equal(t, StatusInvalidCursorPos, rep.Outcomes[2].Status)
	require.Equal(t, "abcdef", string(d.Snapshot()))
}

// Scenario 5: preload "abc" (one tick), then a tick with A:INSERT 0 xyz,
// B:DEL 0 2. Deletes apply first -> working "c"; insert at snap 0 maps to
// work 0 (the delete's own meta entry at pos 0 is not strictly before 0,
// so it doesn't shift the insert) -> "xyzc".
func TestScenario5TwoClients(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "abc")})

	rep := d.ApplyTick([]Command{
		insertCmd(2, 0, 0, "xyz"),
		delCmd(2, 1, 0, 2),
	})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, StatusSuccess, rep.Outcomes[1].Status)
	require.Equal(t, "xyzc", string(d.Snapshot()))
}

// Scenario 6: ten ORDERED_LIST 0 commands in one tick on an empty doc
// yield indices 1..9,9.
func TestScenario6OrderedListCap(t *testing.T) {
	d := NewDocument()

	cmds := make([]Command, 10)
	for i := range cmds {
		c := ts(1, i)
		c.Kind = BlockOL
		c.SnapPos = 0
		cmds[i] = c
	}

	rep := d.ApplyTick(cmds)

	for _, o := range rep.Outcomes {
		require.Equal(t, StatusSuccess, o.Status)
	}

	idx := d.head
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 9}

	var got []int
	for idx != noChunk {
		got = append(got, d.chunks[idx].indexOL)
		idx = d.chunks[idx].next
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("OL indices mismatch (-want +got):\n%s", diff)
	}
}

// Sequential OL items created across separate ticks (the realistic
// case: a client types an item, presses enter, types the next one)
// append rather than colliding at the same position.
func TestOrderedListSequentialAcrossTicks(t *testing.T) {
	d := NewDocument()

	c := ts(1, 0)
	c.Kind = BlockOL
	c.SnapPos = 0
	rep := d.ApplyTick([]Command{c})
	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, "1. ", string(d.Snapshot()))

	c2 := ts(2, 0)
	c2.Kind = BlockOL
	c2.SnapPos = d.NumCharacters()
	rep = d.ApplyTick([]Command{c2})
	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, "1. \n2. ", string(d.Snapshot()))
	require.Equal(t, 2, d.NumChunks())
}

func TestDuplicateDeletesAreIdempotent(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "abcdefgh")})

	rep := d.ApplyTick([]Command{
		delCmd(2, 0, 2, 3),
		delCmd(2, 1, 2, 3),
	})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, StatusSuccess, rep.Outcomes[1].Status)
	require.Equal(t, "abfgh", string(d.Snapshot()))
}

// BOLD(a,b) then BOLD(a,b+4) in one tick puts both opening markers at
// snapshot position a and the closing markers at b and b+4: the second
// bold's end maps past the four bytes the first bold inserted before it,
// since the mapping shifts only positions strictly after an entry.
func TestTwoOverlappingBolds(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "0123456789")})

	a, b := 2, 5
	rep := d.ApplyTick([]Command{
		boldCmd(2, 0, a, b),
		boldCmd(2, 1, a, b+4),
	})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, StatusSuccess, rep.Outcomes[1].Status)
	require.Equal(t, "01****234**5678**9", string(d.Snapshot()))
}

func TestHeadingAtEndOfChunkWithoutNewline(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "hello")})

	rep := d.ApplyTick([]Command{headingCmd(2, 0, 1, 5)})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, "hello\n# ", string(d.Snapshot()))
}

func TestHorizontalRuleMidLineProducesThreeChunks(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "abcdef\n")})

	c := ts(2, 0)
	c.Kind = BlockHRule
	c.SnapPos = 3

	rep := d.ApplyTick([]Command{c})
	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, "abc\n---\ndef\n", string(d.Snapshot()))

	require.Equal(t, 3, d.NumChunks())
}

func TestRejectUnauthorisedReadRole(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "abc")})

	cmd := insertCmd(2, 0, 0, "zzz")
	cmd.Role = RoleRead

	rep := d.ApplyTick([]Command{cmd})

	require.Equal(t, StatusRejectUnauthorised, rep.Outcomes[0].Status)
	require.Equal(t, "abc", string(d.Snapshot()))
	require.Equal(t, uint64(1), rep.Version, "version must not advance when nothing succeeded")
}

func TestHeartbeatWithNoCommands(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "abc")})

	rep := d.ApplyTick(nil)

	require.Empty(t, rep.Outcomes)
	require.Equal(t, uint64(1), rep.Version)
	require.Equal(t, "abc", string(d.Snapshot()))
}

func TestDeletedPositionBothEndpointsInsideRange(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "0123456789")})

	rep := d.ApplyTick([]Command{
		delCmd(2, 0, 2, 6), // deletes [2,8)
		boldCmd(2, 1, 3, 5),
	})

	require.Equal(t, StatusSuccess, rep.Outcomes[0].Status)
	require.Equal(t, StatusDeletedPosition, rep.Outcomes[1].Status)
}

func TestInvalidCursorPosBeyondSnapshot(t *testing.T) {
	d := NewDocument()
	d.ApplyTick([]Command{insertCmd(1, 0, 0, "abc")})

	rep := d.ApplyTick([]Command{insertCmd(2, 0, 99, "x")})

	require.Equal(t, StatusInvalidCursorPos, rep.Outcomes[0].Status)
}
