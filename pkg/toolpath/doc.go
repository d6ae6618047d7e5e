// Package toolpath holds the cutting motion data model: points, paths,
// operations, the tools that cut them and the pipeline stages still to be
// applied.
package toolpath
