// Command chisel compiles toolpath jobs into G-code.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chazu/chisel/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(newViper()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Settings are read through v once a
// command runs.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var app *App
	var cfg Config

	root := &cobra.Command{
		Use:          "chisel",
		Short:        "Compile toolpath jobs into G-code",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = loadConfig(v); err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.SetLogger(logger)
			app, err = NewApp(cfg)
			return err
		},
	}
	flags := root.PersistentFlags()
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("dialects", "", "directory of extra dialect tables")
	flags.String("machine", "", "machine overriding the job's, and the machine read back")
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("dialect_dir", flags.Lookup("dialects"))
	_ = v.BindPFlag("machine", flags.Lookup("machine"))

	// ---- compile ----
	var output string
	var ignore []string
	compileCmd := &cobra.Command{
		Use:   "compile JOB",
		Short: "Compile a job file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			app.cfg.Ignore = append(app.cfg.Ignore, ignore...)
			res, err := app.Compile(cmd.Context(), string(src))
			if err != nil {
				return err
			}
			for _, n := range res.Notes {
				fmt.Fprintln(cmd.ErrOrStderr(), "note:", n)
			}
			if res.Report != "" {
				fmt.Fprint(cmd.ErrOrStderr(), res.Report)
			}
			if err := writeOutput(cmd.OutOrStdout(), pick(output, cfg.Output), res.Code); err != nil {
				return err
			}
			if n := len(res.Errors); n > 0 {
				return fmt.Errorf("compile: %d kinds of error in output", n)
			}
			return nil
		},
	}
	compileCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	compileCmd.Flags().StringArrayVar(&ignore, "ignore", nil, "report this error text separately")

	// ---- read ----
	readCmd := &cobra.Command{
		Use:   "read FILE",
		Short: "Read G-code back into tool points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := app.Read(string(code), "")
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, pt := range p.Points {
				fmt.Fprintf(w, "%g %g %g  %g %g %g  F%g S%g\n",
					pt.Pos.X, pt.Pos.Y, pt.Pos.Z, pt.Dir.X, pt.Dir.Y, pt.Dir.Z, pt.Feed, pt.Speed)
			}
			return nil
		},
	}

	// ---- stock ----
	var stl string
	var bubble bool
	var cells int
	stockCmd := &cobra.Command{
		Use:   "stock JOB",
		Short: "Mesh the stock named by a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			app.meshCells = cells
			if stl != "" {
				return app.ExportSTL(string(src), stl, bubble)
			}
			meshes, err := app.Meshes(string(src), bubble)
			if err != nil {
				return err
			}
			for _, m := range meshes {
				lo, hi := m.Bounds()
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d triangles, bounds %v %v\n", m.Name, m.TriangleCount(), lo, hi)
			}
			return nil
		},
	}
	stockCmd.Flags().StringVar(&stl, "stl", "", "write the stock union as STL")
	stockCmd.Flags().BoolVar(&bubble, "bubble", false, "grow each form by its safe distance")
	stockCmd.Flags().IntVar(&cells, "cells", 0, "marching cubes resolution (default 200)")

	// ---- watch ----
	var watchOutput string
	watchCmd := &cobra.Command{
		Use:   "watch JOB",
		Short: "Recompile a job whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := pick(watchOutput, cfg.Output)
			if out == "" {
				return errors.New("watch: an output file is required")
			}
			return newJobWatcher(app, args[0], out).watch(cmd.Context())
		},
	}
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "output file")

	// ---- dialects ----
	dialectsCmd := &cobra.Command{
		Use:   "dialects",
		Short: "List known machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, n := range app.Dialects() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	root.AddCommand(compileCmd, readCmd, stockCmd, watchCmd, dialectsCmd)
	return root
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

// writeOutput writes code to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path, code string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(w, code)
		return err
	}
	return os.WriteFile(path, []byte(code), 0o644)
}
