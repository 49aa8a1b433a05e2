package cmd

import (
	"github.com/spf13/cobra"

	"siglocate/internal/hook"
	"siglocate/internal/locator"
	"siglocate/internal/sections"
)

var selfCmd = &cobra.Command{
	Use:   "self",
	Short: "Run the attach-time pipeline against this process",
	Long: `Self runs the same pipeline a host runs after loading the locator: it
resolves the target module in this process, locates the function and hands
the address to the logging hook, which reports it with the configured build
limits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lg := componentLogger(cfg, dir, false)
		defer lg.Close()

		opts, err := locator.FromConfig(cfg, lg)
		if err != nil {
			return err
		}
		h := hook.NewLogger(lg, cfg.Limits)
		res, err := locator.Run(cmd.Context(), sections.Target{Name: cfg.Target}, opts, h)

		rep := report{Source: "process " + targetName(cfg.Target), Format: "process", Result: res, arch: opts.Arch}
		if err != nil {
			if !locator.Miss(err) {
				return err
			}
			rep.Miss, rep.err = err.Error(), err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
		} else {
			writePlain(cmd.OutOrStdout(), rep, false)
		}
		return rep.err
	},
}

func init() {
	rootCmd.AddCommand(selfCmd)
}
