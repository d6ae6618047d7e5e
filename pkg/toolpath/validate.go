package toolpath

import (
	"fmt"

	"github.com/chazu/chisel/pkg/geom"
)

// ValidationSeverity indicates whether a finding prevents a path from being
// compiled or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // path is skipped
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Path     string // path name (empty if unnamed)
	Index    int    // point index, -1 for path-level findings
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case e.Index >= 0:
		return fmt.Sprintf("[%s] path %q point %d: %s", e.Severity, e.Path, e.Index, e.Message)
	case e.Path != "":
		return fmt.Sprintf("[%s] path %q: %s", e.Severity, e.Path, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
}

// Validate checks a path's geometry. It never mutates the path.
func Validate(p *Path) []ValidationError {
	var errs []ValidationError
	if len(p.Points) == 0 {
		return append(errs, ValidationError{
			Path: p.Name, Index: -1, Message: "path has no points", Severity: SeverityError,
		})
	}
	for i, pt := range p.Points {
		if !geom.IsFinite(pt.Pos) {
			errs = append(errs, ValidationError{
				Path: p.Name, Index: i, Message: "position is not finite", Severity: SeverityError,
			})
		}
		if !geom.IsFinite(pt.Dir) || geom.IsZero(pt.Dir) {
			errs = append(errs, ValidationError{
				Path: p.Name, Index: i, Message: "direction is zero or not finite", Severity: SeverityError,
			})
		}
	}
	if p.Tool != nil && p.Tool.Width <= 0 {
		errs = append(errs, ValidationError{
			Path: p.Name, Index: -1, Message: "tool width is not positive", Severity: SeverityWarning,
		})
	}
	if p.Additions.Offset != 0 && !p.Flat() {
		errs = append(errs, ValidationError{
			Path: p.Name, Index: -1, Message: "offset requested on a path that is not flat", Severity: SeverityWarning,
		})
	}
	return errs
}

// HasErrors reports whether any finding is error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
