package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/chisel/pkg/engine"
	"github.com/chazu/chisel/pkg/machine"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// lineJob cuts one straight line inside a block, with nothing for the
// pipeline to add.
const lineJob = `
(instruction "line" :machine (machine "generic3")
  :tool (tool "flat" :number 4 :width 6 :feed-cut 500)
  :stock (box-stock :center (vec3 0 0 -5) :size (vec3 40 40 10) :safe 1)
  (operation "cut" (path "line" (pt -10 0 -1) (pt 10 0 -1))))
`

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	app, err := NewApp(cfg)
	require.NoError(t, err)
	app.meshCells = 30
	return app
}

func readExample(t *testing.T, name string) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("examples", name))
	require.NoError(t, err)
	return string(src)
}

// ---------------------------------------------------------------------------
// Compile
// ---------------------------------------------------------------------------

func TestCompileLineJob(t *testing.T) {
	app := newTestApp(t, Config{})
	res, err := app.Compile(context.Background(), lineJob)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Code, "%\nG90 G21 G17\nG54\n(line)\n"), res.Code)
	assert.Contains(t, res.Code, "(cut)")
	assert.Contains(t, res.Code, "T4 M06")
	assert.True(t, strings.HasSuffix(res.Code, "M30\n%\n"))
	assert.Empty(t, res.Errors)

	p, err := app.Read(res.Code, "generic3")
	require.NoError(t, err)
	require.NotZero(t, p.Len())
	last := p.LastPoint().Pos
	assert.InDelta(t, 10, last.X, 1e-3)
	assert.InDelta(t, -1, last.Z, 1e-3)
}

func TestCompileExamples(t *testing.T) {
	for _, tt := range []struct {
		file    string
		machine string
		want    []string
	}{
		{"plate.chisel", "generic3", []string{"(slots)", "T3 M06"}},
		{"rod5axis.chisel", "pocketnc", []string{"(flute)", " A", " B"}},
		{"skim.chisel", "generic3", []string{"(surface)", "T2 M06"}},
	} {
		t.Run(tt.file, func(t *testing.T) {
			app := newTestApp(t, Config{})
			res, err := app.Compile(context.Background(), readExample(t, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.machine, machine.Name(res.Instruction.Machine))
			for _, w := range tt.want {
				assert.Contains(t, res.Code, w)
			}
		})
	}
}

func TestCompileMachineOverride(t *testing.T) {
	app := newTestApp(t, Config{Machine: "laser"})
	res, err := app.Compile(context.Background(), lineJob)
	require.NoError(t, err)
	assert.Equal(t, "laser", machine.Name(res.Instruction.Machine))
	assert.NotContains(t, res.Code, "Z")
}

func TestCompileUnknownOverride(t *testing.T) {
	app := newTestApp(t, Config{Machine: "lathe"})
	_, err := app.Compile(context.Background(), lineJob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lathe")
}

func TestCompileJobErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "empty job"},
		{"syntax", `(instruction "x"`, ""},
		{"no instruction", `(def x 1)`, "no instruction"},
		{"bad machine", `(instruction "x" :machine (machine "lathe"))`, "lathe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, Config{})
			_, err := app.Compile(context.Background(), tt.src)
			var jobErr *JobError
			require.True(t, errors.As(err, &jobErr), "err = %v", err)
			assert.NotEmpty(t, jobErr.Errors)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJobErrorMessage(t *testing.T) {
	err := &JobError{Errors: []engine.EvalError{{Line: 2, Message: "bad"}, {Message: "worse"}}}
	assert.Equal(t, "job: line 2: bad; worse", err.Error())
}

func TestCompileNotes(t *testing.T) {
	src := `
(def block (box-stock :size (vec3 10 10 10)))
(instruction "skim" :machine (machine "generic3") :tool (tool "b" :width 3)
  (operation "top" (project-path "top" :stock block
    :from (list (vec3 0 0 50) (vec3 40 0 50)))))
`
	app := newTestApp(t, Config{})
	res, err := app.Compile(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "1 of 2 rays missed")
}

// ---------------------------------------------------------------------------
// Dialects
// ---------------------------------------------------------------------------

func TestDialectDir(t *testing.T) {
	dir := t.TempDir()
	table := `name: router
kind: three-axis
header: G90 G20
footer: M30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "router.yaml"), []byte(table), 0o644))

	app := newTestApp(t, Config{DialectDir: dir, Machine: "router"})
	assert.Contains(t, app.Dialects(), "router")
	assert.Contains(t, app.Dialects(), "generic3")

	res, err := app.Compile(context.Background(), lineJob)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Code, "G90 G20\n"), res.Code)
}

func TestBadDialectDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [\n"), 0o644))
	_, err := NewApp(Config{DialectDir: dir})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Stock and read back
// ---------------------------------------------------------------------------

func TestMeshes(t *testing.T) {
	app := newTestApp(t, Config{})
	meshes, err := app.Meshes(lineJob, false)
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.False(t, meshes[0].IsEmpty())

	lo, hi := meshes[0].Bounds()
	assert.InDelta(t, -20, lo[0], 1.5)
	assert.InDelta(t, 0, hi[2], 1.5)

	grown, err := app.Meshes(lineJob, true)
	require.NoError(t, err)
	_, ghi := grown[0].Bounds()
	assert.Greater(t, ghi[2], hi[2])
}

func TestExportSTL(t *testing.T) {
	app := newTestApp(t, Config{})
	path := filepath.Join(t.TempDir(), "stock.stl")
	require.NoError(t, app.ExportSTL(lineJob, path, false))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestReadNeedsMachine(t *testing.T) {
	app := newTestApp(t, Config{})
	_, err := app.Read("G00 X1\n", "")
	assert.Error(t, err)

	app = newTestApp(t, Config{Machine: "generic3"})
	p, err := app.Read("G00 X1 Y2 Z3\nG01 X4 F100\n", "")
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.Zero(t, p.Points[0].Feed)
	assert.Equal(t, 100.0, p.Points[1].Feed)
}
