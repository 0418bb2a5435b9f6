// Package commandline parses the raw, newline-terminated command lines
// clients submit over the transport into engine.Command values. It knows
// nothing about who submitted a line or when — Username, Role, Timestamp
// and Seq are stamped on by the caller at submission time.
package commandline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/mdcollab/internal/engine"
)

// ErrMalformed means a command line was missing a required token or had
// one that failed to parse as an integer.
var ErrMalformed = errors.New("malformed command line")

// ErrUnknownVerb means the first token wasn't one of the grammar's verbs.
var ErrUnknownVerb = errors.New("unknown command verb")

// Parse builds an engine.Command from one raw command line (no trailing
// newline). Callers turn either returned error into an engine.Malformed
// command, which resolves to engine.StatusMalformed; Parse itself does not
// know about statuses.
func Parse(line string) (engine.Command, error) {
	verb, rest, hasRest := strings.Cut(line, " ")
	if !hasRest {
		rest = ""
	}

	cmd := engine.Command{Raw: line}

	switch verb {
	case "INSERT":
		pos, text, err := posAndTrailing(rest)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.Insert
		cmd.SnapPos = pos
		cmd.Content = []byte(text)
	case "DEL":
		args, err := intFields(rest, 2)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.Delete
		cmd.SnapPos = args[0]
		cmd.Length = args[1]
	case "NEWLINE":
		args, err := intFields(rest, 1)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.Newline
		cmd.SnapPos = args[0]
	case "HEADING":
		args, err := intFields(rest, 2)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.BlockHeading
		cmd.HeadingLevel = args[0]
		cmd.SnapPos = args[1]
	case "BOLD":
		if err := inlineRange(rest, &cmd, engine.InlineBold); err != nil {
			return engine.Command{}, err
		}
	case "ITALIC":
		if err := inlineRange(rest, &cmd, engine.InlineItalic); err != nil {
			return engine.Command{}, err
		}
	case "CODE":
		if err := inlineRange(rest, &cmd, engine.InlineCode); err != nil {
			return engine.Command{}, err
		}
	case "BLOCKQUOTE":
		args, err := intFields(rest, 1)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.BlockBlockquote
		cmd.SnapPos = args[0]
	case "ORDERED_LIST":
		args, err := intFields(rest, 1)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.BlockOL
		cmd.SnapPos = args[0]
	case "UNORDERED_LIST":
		args, err := intFields(rest, 1)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.BlockUL
		cmd.SnapPos = args[0]
	case "HORIZONTAL_RULE":
		args, err := intFields(rest, 1)
		if err != nil {
			return engine.Command{}, err
		}

		cmd.Kind = engine.BlockHRule
		cmd.SnapPos = args[0]
	case "LINK":
		start, rest2, err := cutInt(rest)
		if err != nil {
			return engine.Command{}, err
		}

		end, url, err := posAndTrailing(rest2)
		if err != nil {
			return engine.Command{}, err
		}

		// An empty url parses fine here; the engine rejects it as
		// StatusInvalidCursorPos per its own validateStructure check,
		// not as a parse-level error.
		cmd.Kind = engine.InlineLink
		cmd.SnapPos = start
		cmd.EndPos = end
		cmd.Content = []byte(url)
	default:
		return engine.Command{}, fmt.Errorf("%w: %q", ErrUnknownVerb, verb)
	}

	return cmd, nil
}

// inlineRange parses "<start> <end>" into cmd's Kind/SnapPos/EndPos.
func inlineRange(rest string, cmd *engine.Command, kind engine.CommandKind) error {
	args, err := intFields(rest, 2)
	if err != nil {
		return err
	}

	cmd.Kind = kind
	cmd.SnapPos = args[0]
	cmd.EndPos = args[1]

	return nil
}

// intFields splits rest into exactly n space-separated integer tokens.
func intFields(rest string, n int) ([]int, error) {
	if rest == "" {
		return nil, fmt.Errorf("%w: missing arguments", ErrMalformed)
	}

	fields := strings.Split(rest, " ")
	if len(fields) != n {
		return nil, fmt.Errorf("%w: expected %d argument(s), got %d", ErrMalformed, n, len(fields))
	}

	out := make([]int, n)

	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformed, f)
		}

		out[i] = v
	}

	return out, nil
}

// posAndTrailing splits rest into a leading integer token and everything
// after the following single space, verbatim (the grammar's <text>/<url>
// capture, which may itself contain spaces).
func posAndTrailing(rest string) (int, string, error) {
	pos, trailing, err := cutInt(rest)
	if err != nil {
		return 0, "", err
	}

	return pos, trailing, nil
}

// cutInt splits s on the first space, parsing the first token as an int
// and returning the remainder (possibly empty) verbatim.
func cutInt(s string) (int, string, error) {
	tok, rest, found := strings.Cut(s, " ")
	if !found {
		tok = s
		rest = ""

		if tok == "" {
			return 0, "", fmt.Errorf("%w: missing arguments", ErrMalformed)
		}
	}

	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q is not an integer", ErrMalformed, tok)
	}

	return v, rest, nil
}
