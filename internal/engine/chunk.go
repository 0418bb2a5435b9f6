// Package engine implements the document engine: a chunked representation
// of a Markdown document and the batched command-application pipeline that
// advances it one tick at a time.
//
// Chunks live in an arena (a slice with stable indices) rather than as
// heap-linked nodes, per the design notes this module was built from: a
// linked list of pointers makes double-free and dangling-link bugs easy to
// introduce in a systems language, and buys nothing in Go since the arena
// gives the same O(1) splice/unlink behavior via prev/next indices.
package engine

// ChunkType is the semantic tag carried by every line chunk.
type ChunkType uint8

// ChunkType values enumerate the Markdown line kinds the engine understands.
const (
	Plain ChunkType = iota
	Heading1
	Heading2
	Heading3
	Blockquote
	UnorderedListItem
	OrderedListItem
	HorizontalRule
)

// minChunkCap is the smallest buffer capacity a chunk is allocated with.
const minChunkCap = 128

// noChunk marks the absence of a chunk in prev/next/head/tail links.
const noChunk = -1

// chunk is one logical Markdown line: a semantic type plus a growable byte
// buffer. buf has length equal to its capacity (a power of two, >= 128);
// only buf[:length] holds valid text. ensureCap always leaves room for one
// byte at buf[length] (the terminator slot), but no terminator is written
// there and the byte may hold stale text after a delete.
type chunk struct {
	typ     ChunkType
	buf     []byte
	length  int
	indexOL int // valid only when typ == OrderedListItem
	prev    int
	next    int
}

// newChunk allocates a chunk with minimum capacity holding the given bytes.
func newChunk(typ ChunkType, text []byte) chunk {
	c := chunk{typ: typ, prev: noChunk, next: noChunk}
	c.ensureCap(len(text))
	copy(c.buf, text)
	c.length = len(text)

	return c
}

// ensureCap grows buf by doubling (starting at minChunkCap) until it can
// hold `need` bytes plus the zero terminator.
func (c *chunk) ensureCap(need int) {
	capNeeded := need + 1
	if len(c.buf) >= capNeeded {
		return
	}

	newCap := minChunkCap
	for newCap < capNeeded {
		newCap *= 2
	}

	grown := make([]byte, newCap)
	copy(grown, c.buf[:c.length])
	c.buf = grown
}

// text returns the chunk's valid bytes.
func (c *chunk) text() []byte {
	return c.buf[:c.length]
}

// endsWithNewline reports whether the chunk's last valid byte is '\n'.
func (c *chunk) endsWithNewline() bool {
	return c.length > 0 && c.buf[c.length-1] == '\n'
}

// insertBytes grows the buffer if needed, shifts the suffix right, and
// splices data in at the local offset. Does not touch typ.
func (c *chunk) insertBytes(local int, data []byte) {
	c.ensureCap(c.length + len(data))
	c.buf = c.buf[:cap(c.buf)]

	copy(c.buf[local+len(data):c.length+len(data)], c.buf[local:c.length])
	copy(c.buf[local:local+len(data)], data)
	c.length += len(data)
}

// deleteBytes removes [local, local+n) from the chunk, shifting the
// remainder left. n is clamped to the valid range by the caller.
func (c *chunk) deleteBytes(local, n int) {
	copy(c.buf[local:c.length-n], c.buf[local+n:c.length])
	c.length -= n
}

// ordinalPrefix renders the "N. " prefix for index n (1..9).
func ordinalPrefix(n int) string {
	return string(rune('0'+n)) + ". "
}
