// Package dialect describes the G-code flavour of a machine as data: comment
// syntax, command tokens, file framing, axis bounds and the 5-axis pivot.
// New machines only need a new YAML table.
package dialect

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects the kinematic family of a machine.
type Kind string

const (
	KindTwoAxis   Kind = "two-axis"
	KindThreeAxis Kind = "three-axis"
	KindABTable   Kind = "ab-table"
)

// Dialect is one machine's code table. Angles are in degrees.
type Dialect struct {
	Name         string     `yaml:"name"`
	Kind         Kind       `yaml:"kind"`
	CommentStart string     `yaml:"comment_start"`
	CommentEnd   string     `yaml:"comment_end"`
	SectionBreak string     `yaml:"section_break"`
	SpeedChange  string     `yaml:"speed_change"`
	ToolChange   string     `yaml:"tool_change"` // %d is replaced by the tool number
	Header       string     `yaml:"header"`
	Footer       string     `yaml:"footer"`
	PathStart    string     `yaml:"path_start"`
	PathEnd      string     `yaml:"path_end"`
	NumberLines  bool       `yaml:"number_lines"`
	LineStep     int        `yaml:"line_step"`
	Precision    int        `yaml:"precision"`
	PathJump     float64    `yaml:"path_jump"`
	AMin         float64    `yaml:"a_min"`
	AMax         float64    `yaml:"a_max"`
	BMax         float64    `yaml:"b_max"`
	Pivot        [3]float64 `yaml:"pivot"`
	Extension    string     `yaml:"extension"`
}

//go:embed builtin/*.yaml
var builtin embed.FS

// maxFileSize bounds dialect tables read from disk.
const maxFileSize = 1 << 20

// Decode reads one dialect table. Unknown keys are rejected.
func Decode(r io.Reader) (*Dialect, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var d Dialect
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("dialect: decode: %w", err)
	}
	d.applyDefaults()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadFile reads a dialect table from path.
func LoadFile(path string) (*Dialect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dialect: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("dialect: %s exceeds %d bytes", path, maxFileSize)
	}
	d, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func (d *Dialect) applyDefaults() {
	if d.Kind == "" {
		d.Kind = KindThreeAxis
	}
	if d.CommentStart == "" {
		d.CommentStart = "("
		if d.CommentEnd == "" {
			d.CommentEnd = ")"
		}
	}
	if d.LineStep == 0 {
		d.LineStep = 10
	}
	if d.Precision == 0 {
		d.Precision = 3
	}
	if d.PathJump == 0 {
		d.PathJump = 2
	}
	if d.Extension == "" {
		d.Extension = "nc"
	}
}

// Validate checks the table is usable.
func (d *Dialect) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch d.Kind {
	case KindTwoAxis, KindThreeAxis, KindABTable:
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", d.Kind))
	}
	if d.ToolChange != "" && strings.Count(d.ToolChange, "%d") != 1 {
		errs = append(errs, errors.New("tool_change must contain %d exactly once"))
	}
	if d.Precision < 0 || d.Precision > 8 {
		errs = append(errs, fmt.Errorf("precision %d out of range", d.Precision))
	}
	if d.Kind == KindABTable {
		if d.AMin >= d.AMax {
			errs = append(errs, fmt.Errorf("a_min %g must be below a_max %g", d.AMin, d.AMax))
		}
		if d.BMax <= 0 {
			errs = append(errs, errors.New("b_max must be positive"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("dialect %q: %w", d.Name, errors.Join(errs...))
	}
	return nil
}

// Radians returns the A and B bounds in radians.
func (d *Dialect) Radians() (aMin, aMax, bMax float64) {
	const k = math.Pi / 180
	return d.AMin * k, d.AMax * k, d.BMax * k
}

// FormatToolChange renders the tool change block for tool number n.
func (d *Dialect) FormatToolChange(n int) string {
	if d.ToolChange == "" {
		return ""
	}
	return fmt.Sprintf(d.ToolChange, n)
}

// Comment wraps text in the dialect's comment delimiters.
func (d *Dialect) Comment(text string) string {
	return d.CommentStart + text + d.CommentEnd
}

// StripComments removes every delimited comment from a line.
func (d *Dialect) StripComments(line string) string {
	for {
		i := strings.Index(line, d.CommentStart)
		if i < 0 {
			return line
		}
		if d.CommentEnd == "" {
			return line[:i]
		}
		j := strings.Index(line[i+len(d.CommentStart):], d.CommentEnd)
		if j < 0 {
			return line[:i]
		}
		line = line[:i] + line[i+len(d.CommentStart)+j+len(d.CommentEnd):]
	}
}

// Registry holds dialects by name.
type Registry struct {
	byName map[string]*Dialect
}

// NewRegistry returns a registry holding the built-in dialects.
func NewRegistry() (*Registry, error) {
	r := &Registry{byName: make(map[string]*Dialect)}
	entries, err := builtin.ReadDir("builtin")
	if err != nil {
		return nil, fmt.Errorf("dialect: builtin: %w", err)
	}
	for _, e := range entries {
		f, err := builtin.Open("builtin/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("dialect: builtin: %w", err)
		}
		d, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("dialect: builtin %s: %w", e.Name(), err)
		}
		r.Add(d)
	}
	return r, nil
}

// Add registers d, replacing any dialect of the same name.
func (r *Registry) Add(d *Dialect) { r.byName[d.Name] = d }

// LoadDir registers every *.yaml and *.yml table in dir.
func (r *Registry) LoadDir(dir string) error {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("dialect: %w", err)
		}
		files = append(files, m...)
	}
	sort.Strings(files)
	for _, path := range files {
		d, err := LoadFile(path)
		if err != nil {
			return err
		}
		r.Add(d)
	}
	return nil
}

// Get returns the named dialect.
func (r *Registry) Get(name string) (*Dialect, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown machine %q (have %s)", name, strings.Join(r.Names(), ", "))
	}
	return d, nil
}

// Names lists the registered dialects in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a built-in dialect by name.
func Builtin(name string) (*Dialect, error) {
	r, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	return r.Get(name)
}
