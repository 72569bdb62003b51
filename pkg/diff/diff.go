// Package diff renders line diffs between two versions of a document.
package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MaxLines caps the number of diff lines rendered.
const MaxLines = 10000

const truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."

type line struct {
	op   diffmatchpatch.Operation
	text string
}

// Unified returns a unified-style line diff of before and after, keeping
// context unchanged lines around each change. It returns "" when the inputs
// are identical. A negative context keeps every line.
func Unified(before, after []byte, beforeLabel, afterLabel string, context int) string {
	if bytes.Equal(before, after) {
		return ""
	}

	lines := diffLines(string(before), string(after))

	keep := make([]bool, len(lines))
	for i, l := range lines {
		if context < 0 {
			keep[i] = true
			continue
		}
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(i-context, 0); j <= min(i+context, len(lines)-1); j++ {
			keep[j] = true
		}
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "--- %s\n", beforeLabel)
	fmt.Fprintf(&buf, "+++ %s\n", afterLabel)

	written := 0
	skipped := false
	for i, l := range lines {
		if !keep[i] {
			skipped = true
			continue
		}
		if skipped || (i == 0 && written == 0) {
			fmt.Fprintf(&buf, "@@ line %d @@\n", originalLine(lines, i))
			skipped = false
		}
		if written == MaxLines {
			buf.WriteString(truncateMessage + "\n")
			break
		}
		buf.WriteString(prefix(l.op))
		buf.WriteString(l.text)
		buf.WriteString("\n")
		written++
	}

	return buf.String()
}

// Stats counts inserted and deleted lines.
func Stats(before, after []byte) (inserted, deleted int) {
	for _, l := range diffLines(string(before), string(after)) {
		switch l.op {
		case diffmatchpatch.DiffInsert:
			inserted++
		case diffmatchpatch.DiffDelete:
			deleted++
		}
	}
	return inserted, deleted
}

func diffLines(before, after string) []line {
	dmp := diffmatchpatch.New()
	a, b, index := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), index)

	var out []line
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, t := range strings.Split(text, "\n") {
			out = append(out, line{op: d.Type, text: t})
		}
	}
	return out
}

// originalLine returns the 1-based line number in before of lines[i].
func originalLine(lines []line, i int) int {
	n := 1
	for _, l := range lines[:i] {
		if l.op != diffmatchpatch.DiffInsert {
			n++
		}
	}
	return n
}

func prefix(op diffmatchpatch.Operation) string {
	switch op {
	case diffmatchpatch.DiffInsert:
		return "+"
	case diffmatchpatch.DiffDelete:
		return "-"
	default:
		return " "
	}
}
