package engine

import "strings"

// rewriter turns job source into text zygomys reads. Outside string
// literals it rewrites three things:
//
//	; comment      -> // comment
//	:feed-cut      -> "__kw_feed-cut"
//	box-stock      -> box_stock
//
// Keywords become strings so they need no globals that could clash with
// user names. zygomys reads a hyphen as subtraction, so one between a name
// character and a letter joins the name instead.
type rewriter struct {
	src string
	i   int
	out strings.Builder
}

func preprocessSource(source string) string {
	r := &rewriter{src: source}
	r.out.Grow(len(source) + len(source)/4)
	for r.i < len(r.src) {
		switch c := r.src[r.i]; {
		case c == '"':
			r.quoted('"', true)
		case c == '`':
			r.quoted('`', false)
		case c == ';':
			r.comment()
		case c == ':' && r.next(isLetter):
			r.keyword()
		case c == '-' && r.i > 0 && isIdentChar(r.src[r.i-1]) && r.next(isLetter):
			r.out.WriteByte('_')
			r.i++
		default:
			r.out.WriteByte(c)
			r.i++
		}
	}
	return r.out.String()
}

// next reports whether the byte after the current one satisfies ok.
func (r *rewriter) next(ok func(byte) bool) bool {
	return r.i+1 < len(r.src) && ok(r.src[r.i+1])
}

// quoted copies a literal up to and including its closing delimiter.
func (r *rewriter) quoted(end byte, escapes bool) {
	start := r.i
	r.i++
	for r.i < len(r.src) && r.src[r.i] != end {
		if escapes && r.src[r.i] == '\\' && r.i+1 < len(r.src) {
			r.i++
		}
		r.i++
	}
	if r.i < len(r.src) {
		r.i++
	}
	r.out.WriteString(r.src[start:r.i])
}

// comment rewrites a run of semicolons as // and copies the rest of the
// line.
func (r *rewriter) comment() {
	for r.i < len(r.src) && r.src[r.i] == ';' {
		r.i++
	}
	end := strings.IndexByte(r.src[r.i:], '\n')
	if end < 0 {
		end = len(r.src) - r.i
	}
	r.out.WriteString("//")
	r.out.WriteString(r.src[r.i : r.i+end])
	r.i += end
}

func (r *rewriter) keyword() {
	j := r.i + 1
	for j < len(r.src) && isKWChar(r.src[j]) {
		j++
	}
	r.out.WriteByte('"')
	r.out.WriteString(kwPrefix)
	r.out.WriteString(r.src[r.i+1 : j])
	r.out.WriteByte('"')
	r.i = j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
