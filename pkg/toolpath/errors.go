package toolpath

import "fmt"

// MissingContextError reports a path that reached code generation without
// a tool or stock.
type MissingContextError struct {
	Path    string
	Missing string // "tool" or "stock"
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("toolpath: path %q has no %s", e.Path, e.Missing)
}

// UnprocessedAdditionsError reports a path written to code while pipeline
// stages were still pending.
type UnprocessedAdditionsError struct {
	Path string
}

func (e *UnprocessedAdditionsError) Error() string {
	return fmt.Sprintf("toolpath: path %q still has unprocessed additions", e.Path)
}
