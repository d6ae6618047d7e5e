// Package codegen holds the build context threaded through one emission
// pass: the text buffer, the last written machine state, axis ranges and
// de-duplicated diagnostics.
//
// A CodeInfo is owned by a single writer. It is not safe for concurrent use.
package codegen

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/chisel/pkg/dialect"
)

// Range is the closed interval a value has covered.
type Range struct {
	Min, Max float64
}

// CodeInfo accumulates generated code and the state needed to keep it
// modal.
type CodeInfo struct {
	Dialect *dialect.Dialect

	buf      strings.Builder
	lineNo   int
	state    map[string]string
	ranges   map[string]Range
	warnings counter
	errors   counter
	ignore   map[string]bool
}

// New returns an empty build context. Errors whose text is in ignore are
// still counted but reported separately.
func New(d *dialect.Dialect, ignore []string) *CodeInfo {
	c := &CodeInfo{
		Dialect: d,
		state:   make(map[string]string),
		ranges:  make(map[string]Range),
		ignore:  make(map[string]bool, len(ignore)),
	}
	for _, msg := range ignore {
		c.ignore[msg] = true
	}
	return c
}

// Append writes text, numbering each line when the dialect asks for it.
// Any line ending style is normalized to "\n".
func (c *CodeInfo) Append(text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	for _, line := range strings.Split(text, "\n") {
		c.AppendLine(line)
	}
}

// AppendLine writes a single line.
func (c *CodeInfo) AppendLine(line string) {
	line = strings.TrimRight(line, " \t")
	if c.Dialect.NumberLines && c.numbered(line) {
		c.lineNo += c.Dialect.LineStep
		line = "N" + strconv.Itoa(c.lineNo) + " " + line
	}
	c.buf.WriteString(line)
	c.buf.WriteByte('\n')
}

// numbered reports whether a line gets a sequence number. Blank lines,
// program delimiters and comments do not.
func (c *CodeInfo) numbered(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && trimmed != "%" && !strings.HasPrefix(trimmed, c.Dialect.CommentStart)
}

// AppendComment writes text as a comment line. Delimiters inside text are
// removed so they cannot end the comment early.
func (c *CodeInfo) AppendComment(text string) {
	if c.Dialect.CommentEnd != "" {
		text = strings.ReplaceAll(text, c.Dialect.CommentEnd, "")
	}
	text = strings.ReplaceAll(text, c.Dialect.CommentStart, "")
	c.AppendLine(c.Dialect.Comment(text))
}

// String returns the code written so far.
func (c *CodeInfo) String() string { return c.buf.String() }

// Len returns the number of bytes written so far.
func (c *CodeInfo) Len() int { return c.buf.Len() }

// Format renders v with the dialect precision, trimming trailing zeros and
// never producing "-0".
func (c *CodeInfo) Format(v float64) string {
	s := strconv.FormatFloat(v, 'f', c.Dialect.Precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// State returns the last written value for key.
func (c *CodeInfo) State(key string) (string, bool) {
	v, ok := c.state[key]
	return v, ok
}

// SetState records the last written value for key.
func (c *CodeInfo) SetState(key, value string) { c.state[key] = value }

// ClearState forgets keys so the next write restates them.
func (c *CodeInfo) ClearState(keys ...string) {
	for _, k := range keys {
		delete(c.state, k)
	}
}

// Word returns "key"+value when value differs from the recorded state and
// records it, or "" when the word would be redundant.
func (c *CodeInfo) Word(key, value string) string {
	if last, ok := c.state[key]; ok && last == value {
		return ""
	}
	c.state[key] = value
	return key + value
}

// GrowRange widens the interval recorded for key to include v.
func (c *CodeInfo) GrowRange(key string, v float64) {
	if math.IsNaN(v) {
		return
	}
	r, ok := c.ranges[key]
	if !ok {
		c.ranges[key] = Range{Min: v, Max: v}
		return
	}
	r.Min = math.Min(r.Min, v)
	r.Max = math.Max(r.Max, v)
	c.ranges[key] = r
}

// Ranges returns a copy of the recorded intervals.
func (c *CodeInfo) Ranges() map[string]Range {
	out := make(map[string]Range, len(c.ranges))
	for k, v := range c.ranges {
		out[k] = v
	}
	return out
}

// AddWarning counts one occurrence of a warning.
func (c *CodeInfo) AddWarning(msg string) { c.warnings.add(msg) }

// AddError counts one occurrence of an error.
func (c *CodeInfo) AddError(msg string) { c.errors.add(msg) }

// Warnings returns warning counts by message.
func (c *CodeInfo) Warnings() map[string]int { return c.warnings.snapshot(nil, true) }

// Errors returns counts of errors not covered by the ignore list.
func (c *CodeInfo) Errors() map[string]int { return c.errors.snapshot(c.ignore, false) }

// Ignored returns counts of errors covered by the ignore list.
func (c *CodeInfo) Ignored() map[string]int { return c.errors.snapshot(c.ignore, true) }

// HasErrors reports whether any error outside the ignore list was recorded.
func (c *CodeInfo) HasErrors() bool { return len(c.Errors()) > 0 }

// Report summarizes ranges and diagnostics for a person to read.
func (c *CodeInfo) Report() string {
	var b strings.Builder
	if len(c.ranges) > 0 {
		b.WriteString("Ranges:\n")
		keys := make([]string, 0, len(c.ranges))
		for k := range c.ranges {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r := c.ranges[k]
			fmt.Fprintf(&b, "  %s: %s to %s\n", k, c.Format(r.Min), c.Format(r.Max))
		}
	}
	writeCounts(&b, "Warnings", c.warnings.order, c.Warnings())
	writeCounts(&b, "Errors", c.errors.order, c.Errors())
	writeCounts(&b, "Ignored errors", c.errors.order, c.Ignored())
	return b.String()
}

func writeCounts(b *strings.Builder, title string, order []string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, msg := range order {
		n, ok := counts[msg]
		if !ok {
			continue
		}
		if n == 1 {
			fmt.Fprintf(b, "  %s (1 time)\n", msg)
		} else {
			fmt.Fprintf(b, "  %s (%d times)\n", msg, n)
		}
	}
}

// counter counts messages, remembering first-seen order.
type counter struct {
	counts map[string]int
	order  []string
}

func (k *counter) add(msg string) {
	if k.counts == nil {
		k.counts = make(map[string]int)
	}
	if _, ok := k.counts[msg]; !ok {
		k.order = append(k.order, msg)
	}
	k.counts[msg]++
}

// snapshot copies counts whose membership in filter equals keep. A nil
// filter with keep true copies everything.
func (k *counter) snapshot(filter map[string]bool, keep bool) map[string]int {
	out := make(map[string]int)
	for msg, n := range k.counts {
		if filter == nil || filter[msg] == keep {
			out[msg] = n
		}
	}
	return out
}
