package cmd

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"siglocate/internal/config"
	"siglocate/internal/logging"
)

// loadConfig reads the configuration directory named by --config-dir (or
// the default one) and applies the flags the user set on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	if dir == "" {
		var err error
		if dir, err = config.Dir(); err != nil {
			return config.Config{}, "", err
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return cfg, dir, err
	}

	flags := cmd.Flags()
	if flags.Changed("needle") {
		cfg.Needle, _ = flags.GetString("needle")
	}
	if flags.Changed("arch") {
		cfg.Arch, _ = flags.GetString("arch")
	}
	if flags.Changed("code-section") {
		cfg.CodeSection, _ = flags.GetString("code-section")
	}
	if flags.Changed("data-section") {
		cfg.DataSections, _ = flags.GetStringSlice("data-section")
	}
	if flags.Changed("target") {
		cfg.Target, _ = flags.GetString("target")
	}
	if debug, _ := flags.GetBool("debug"); debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, dir, err
	}
	slog.Debug("Loaded config", "dir", dir, "needle", cfg.Needle, "arch", cfg.Arch)
	return cfg, dir, nil
}

// componentLogger returns the logger handed to the pipeline. quiet drops
// stderr output (the TUI owns the screen) but still honors a log file.
func componentLogger(cfg config.Config, dir string, quiet bool) *logging.LoggerCloser {
	var lg *logging.LoggerCloser
	if cfg.LogToFile {
		if flg, err := logging.NewFileLogger(dir); err == nil {
			lg = flg
		} else {
			slog.Warn("Cannot open log file", "dir", dir, "error", err)
		}
	}
	if lg == nil {
		switch {
		case quiet:
			lg = logging.Discard()
		default:
			lg = logging.NewLogger(dir)
		}
	}
	if cfg.Debug || logging.IsDebug() {
		lg.SetLevel(log.DebugLevel)
	}
	return lg
}

func hexAddr(v uint64) string {
	return fmt.Sprintf("0x%X", v)
}
