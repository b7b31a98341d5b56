// Command tierup runs small IR programs through the interpreter and promotes
// hot methods to compiled wasm.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/tierup/config"
	"github.com/wippyai/tierup/engine"
	"github.com/wippyai/tierup/hotspot"
	"github.com/wippyai/tierup/ir"
	"github.com/wippyai/tierup/jit"
	"github.com/wippyai/tierup/method"
)

// app holds state shared by every subcommand.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tierup",
		Short:         "Run IR programs and tier hot methods up to wasm",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.runCmd(), a.keyCmd(), a.emitCmd())
	return root
}

func (a *app) init() error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.verbose {
		cfg.Log.Level = zapcore.DebugLevel.String()
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	jit.SetLogger(logger)
	engine.SetLogger(logger)
	hotspot.SetLogger(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) runCmd() *cobra.Command {
	var (
		rounds      int
		interactive bool
		watch       bool
	)
	cmd := &cobra.Command{
		Use:   "run PROGRAM",
		Short: "Call every method of a program and report which ones tiered up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}

			s, err := newSession(ctx, a.cfg, prog, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := s.close(context.Background()); err != nil {
					a.logger.Warn("close session", zap.Error(err))
				}
			}()

			if watch {
				if a.configPath == "" {
					return fmt.Errorf("--watch needs --config")
				}
				if err := s.watch(ctx, a.configPath, a.logger); err != nil {
					return err
				}
			}

			if interactive {
				return runInteractive(ctx, s)
			}

			for range rounds {
				if ctx.Err() != nil {
					break
				}
				s.round(ctx)
			}
			out := cmd.OutOrStdout()
			s.report(ctx, out, isTerminal(out))
			return nil
		},
	}
	cmd.Flags().IntVarP(&rounds, "rounds", "n", 100, "times to make each call")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "interactive mode with TUI")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the jit config when the config file changes")
	return cmd
}

func (a *app) keyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key PROGRAM",
		Short: "Print the content key and artifact name of every method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			targets, err := prog.define(method.NewRegistry())
			if err != nil {
				return err
			}
			for _, t := range targets {
				key := ir.Key(t.method.Scope())
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", key, jit.ArtifactName(t.class, t.method.Name(), key))
			}
			return nil
		},
	}
}

func (a *app) emitCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "emit PROGRAM",
		Short: "Write the wasm module of every method to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			targets, err := prog.define(method.NewRegistry())
			if err != nil {
				return err
			}

			eng, err := engine.New(ctx, &a.cfg.Engine)
			if err != nil {
				return err
			}
			defer eng.Close(context.Background())

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			for _, t := range targets {
				m := t.method
				key := ir.Key(m.Scope())
				name := jit.ArtifactName(t.class, m.Name(), key)
				desc, err := eng.Emit(ctx, jit.EmitRequest{
					Unit:         m,
					ArtifactName: name,
					MethodName:   m.Name(),
					Key:          key,
				})
				if err != nil {
					return fmt.Errorf("emit %s: %w", m.QualifiedName(), err)
				}
				path := filepath.Join(dir, name+".wasm")
				if err := os.WriteFile(path, desc.Code, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "output directory")
	return cmd
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
