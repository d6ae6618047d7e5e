package machine

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chazu/chisel/pkg/toolpath"
)

var (
	rapidWord = regexp.MustCompile(`G0*0(?:[^0-9.]|$)`)
	feedWord  = regexp.MustCompile(`G0*[123](?:[^0-9.]|$)`)
	absWord   = regexp.MustCompile(`G0*53(?:[^0-9.]|$)`)
	wordRes   = map[byte]*regexp.Regexp{}
)

func init() {
	for _, k := range "XYZABFST" {
		wordRes[byte(k)] = regexp.MustCompile(string(k) + `\s*(-?(?:\d+\.?\d*|\.\d+))`)
	}
}

// trackedAxes lists the letters whose values define a point on m.
func trackedAxes(m Machine) string {
	switch m.(type) {
	case *TwoAxis:
		return "XY"
	case *ThreeAxis:
		return "XYZ"
	case *ABTable:
		return "XYZAB"
	}
	panic(fmt.Sprintf("machine: unknown variant %T", m))
}

// Read recovers tool points from code written for m. Comments, tool change
// blocks, moves in machine coordinates (G53) and other commands are
// dropped; one point is produced for every line that changes a position,
// feed or speed value. T words select the
// path tool from tools by number.
func Read(m Machine, code string, tools []*toolpath.Tool) (*toolpath.Path, error) {
	d := m.Dialect()
	axes := trackedAxes(m)
	byNumber := make(map[int]*toolpath.Tool, len(tools))
	for _, t := range tools {
		byNumber[t.Number] = t
	}

	p := toolpath.NewPath("read", nil, nil)
	if len(tools) > 0 {
		p.Tool = tools[0]
	}

	values := map[byte]float64{}
	feed, lastFeed, speed := -1.0, -1.0, -1.0
	rapid := false

	sc := bufio.NewScanner(strings.NewReader(code))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.ToUpper(d.StripComments(sc.Text()))
		if strings.TrimSpace(line) == "" {
			continue
		}
		changed := false

		if n, ok := number(line, 'T'); ok {
			t, found := byNumber[int(n)]
			if !found && len(tools) > 0 {
				return nil, fmt.Errorf("machine: line %d: unknown tool T%d", lineNo, int(n))
			}
			if found {
				p.Tool = t
			}
		}
		if rapidWord.MatchString(line) && !rapid {
			rapid = true
			changed = true
		} else if feedWord.MatchString(line) && rapid {
			rapid = false
			changed = true
		}
		if absWord.MatchString(line) {
			// Parking and tool change moves are not part of the path. Their
			// motion mode still carries over.
			continue
		}
		for i := 0; i < len(axes); i++ {
			k := axes[i]
			if v, ok := number(line, k); ok {
				if old, seen := values[k]; !seen || old != v {
					changed = true
				}
				values[k] = v
			}
		}
		if v, ok := number(line, 'F'); ok && v != lastFeed {
			lastFeed = v
			changed = true
		}
		if v, ok := number(line, 'S'); ok && v != speed {
			speed = v
			changed = true
		}
		if !changed {
			continue
		}
		if rapid {
			feed = 0
		} else {
			feed = lastFeed
		}

		ax := Axes{}
		ax.Pos.X, ax.Pos.Y, ax.Pos.Z = values['X'], values['Y'], values['Z']
		ax.A, ax.B = values['A']/radToDeg, values['B']/radToDeg
		pt := Inverse(m, ax)
		pt.Feed = feed
		pt.Speed = speed
		p.Append(pt)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("machine: read: %w", err)
	}
	return p, nil
}

// number extracts the first value following letter k on line.
func number(line string, k byte) (float64, bool) {
	m := wordRes[k].FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
