package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"siglocate/internal/config"
	"siglocate/internal/logging"
	"siglocate/internal/siglocate/log"
	"siglocate/internal/ui/colorize"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().String("config-dir", "", "Configuration directory (default: next to the executable, or $"+config.DirEnv+")")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().String("needle", config.DefaultNeedle, "String constant to locate")
	rootCmd.PersistentFlags().String("arch", "", "Instruction set: amd64, 386 or arm64 (default: from the image)")
	rootCmd.PersistentFlags().String("code-section", config.DefaultCodeSection, "Section scanned for references")
	rootCmd.PersistentFlags().StringSlice("data-section", config.DefaultDataSections, "Sections searched for the needle, in image order")
	rootCmd.PersistentFlags().String("target", "", "Loaded module to scan when no file is given (default: the executable)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output results as JSON")
	rootCmd.PersistentFlags().Bool("symbols", false, "Name the located function from the symbol table")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Show summary without TUI")
	rootCmd.Flags().BoolP("full", "f", false, "Show the function listing (use with --no-tui)")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "siglocate [file]",
	Short: "Locate the function that references a string constant",
	Long: `Siglocate finds a string constant in a binary's data sections and the
function whose code references it. It reads ELF and PE images on disk, or the
modules of its own process when no file is given.`,
	Example: `
# Explore a library interactively
siglocate /path/to/libgame.so

# Print the result and the function listing
siglocate -n -f /path/to/game.exe

# Look for a different string
siglocate --needle "Build height" /path/to/libgame.so
  `,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := ResolveCwd(cmd); err != nil {
			return err
		}
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup("", debug)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup CPU profiling if requested
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		// Setup memory profiling if requested
		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
				}
			}()
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		showFull, _ := cmd.Flags().GetBool("full")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		symbols, _ := cmd.Flags().GetBool("symbols")

		// --full implies --no-tui
		if showFull || jsonOutput {
			noTUI = true
		}

		// Also use no-tui mode when output is being piped
		if !term.IsTerminal(os.Stdout.Fd()) {
			noTUI = true
			os.Setenv(colorize.NoColorEnv, "1")
		}

		cfg, dir, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lg := componentLogger(cfg, dir, !noTUI)
		defer lg.Close()

		var (
			title string
			open  func() (source, error)
		)
		if len(args) == 1 {
			absPath, err := pathpkg.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve path: %w", err)
			}
			if _, err := os.Stat(absPath); err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("file not found: %s", args[0])
				}
				return fmt.Errorf("cannot access file: %w", err)
			}
			title = absPath
			open = func() (source, error) { return openFile(absPath) }
		} else {
			title = "process " + targetName(cfg.Target)
			open = func() (source, error) { return openProcess(cfg.Target) }
		}

		ctx := cmd.Context()
		run := func() (report, error) {
			src, err := open()
			if err != nil {
				return report{}, err
			}
			return scan(ctx, src, cfg, lg, symbols)
		}

		if noTUI {
			rep, err := run()
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			} else {
				writePlain(cmd.OutOrStdout(), rep, showFull)
			}
			return rep.err
		}

		// Set up the TUI.
		program := tea.NewProgram(
			NewModel(title, run),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)

		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func targetName(t string) string {
	if t == "" {
		return "executable"
	}
	return t
}

func Execute() {
	// Check if --no-tui, --full or --json is present, or if output is being
	// piped, to bypass fang's markdown rendering
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--full" || arg == "-f" || arg == "--json" || arg == "-j" {
			noTUI = true
			break
		}
	}

	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		// Use cobra directly to avoid fang's automatic markdown rendering
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	} else {
		// Use fang for enhanced CLI experience with markdown rendering
		if err := fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		); err != nil {
			os.Exit(1)
		}
	}
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %w", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return cwd, nil
}

// logPath returns the log file for the configuration directory in use.
func logPath(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	if dir == "" {
		var err error
		if dir, err = config.Dir(); err != nil {
			return "", err
		}
	}
	return logging.Path(dir), nil
}
