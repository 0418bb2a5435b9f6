package engine

import "bytes"

// ParseDocument rebuilds a chunk store from a flat snapshot image,
// classifying each line by its Markdown prefix. It is used to seed a
// fresh Document from a persisted snapshot on server restart and to give
// a newly connecting client a typed local replica instead of one giant
// PLAIN chunk (original_source/source/client.c's handshake hands the
// client raw snapshot bytes and expects it to reconstruct a document the
// same way the server would have built it).
func ParseDocument(text []byte) *Document {
	d := NewDocument()
	if len(text) == 0 {
		return d
	}

	var olRun int

	for len(text) > 0 {
		nl := bytes.IndexByte(text, '\n')

		var line []byte
		if nl == -1 {
			line = text
			text = nil
		} else {
			line = text[:nl+1]
			text = text[nl+1:]
		}

		typ, idx := classifyLine(line, &olRun)
		c := newChunk(typ, line)
		c.indexOL = idx
		d.appendChunk(c)
	}

	return d
}

// classifyLine infers a chunk's type from its Markdown prefix, the same
// constructs the naive ops produce. olRun tracks the running OL index
// across consecutive calls so a parsed document's OL runs renumber the
// same way a live one would.
func classifyLine(line []byte, olRun *int) (ChunkType, int) {
	body := bytes.TrimSuffix(line, []byte{'\n'})

	switch {
	case bytes.HasPrefix(body, []byte("### ")):
		*olRun = 0

		return Heading3, 0
	case bytes.HasPrefix(body, []byte("## ")):
		*olRun = 0

		return Heading2, 0
	case bytes.HasPrefix(body, []byte("# ")):
		*olRun = 0

		return Heading1, 0
	case bytes.HasPrefix(body, []byte("> ")):
		*olRun = 0

		return Blockquote, 0
	case bytes.Equal(body, []byte("---")):
		*olRun = 0

		return HorizontalRule, 0
	case bytes.HasPrefix(body, []byte("- ")):
		*olRun = 0

		return UnorderedListItem, 0
	case isOrdinalPrefix(body):
		*olRun++
		if *olRun > 9 {
			*olRun = 9
		}

		return OrderedListItem, *olRun
	default:
		*olRun = 0

		return Plain, 0
	}
}

// isOrdinalPrefix reports whether body starts with "N. " for a single
// digit N, the only ordered-list prefix shape the engine ever produces.
func isOrdinalPrefix(body []byte) bool {
	return len(body) >= 3 && body[0] >= '1' && body[0] <= '9' && body[1] == '.' && body[2] == ' '
}
