package cmd

import (
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Locate the function in an image on disk without the TUI",
	Long: `Scan reads an ELF or PE image, finds the needle in its data sections and
prints the function that references it. The exit status is non-zero when the
needle or its function is not found.`,
	Example: `
# Scan a shared library
siglocate scan /path/to/libgame.so

# Scan with the listing and machine-readable output
siglocate scan --full /path/to/game.exe
siglocate scan --json /path/to/game.exe
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lg := componentLogger(cfg, dir, false)
		defer lg.Close()

		src, err := openFile(args[0])
		if err != nil {
			return err
		}

		symbols, _ := cmd.Flags().GetBool("symbols")
		rep, err := scan(cmd.Context(), src, cfg, lg, symbols)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
		} else {
			full, _ := cmd.Flags().GetBool("full")
			writePlain(cmd.OutOrStdout(), rep, full)
		}
		return rep.err
	},
}

func init() {
	scanCmd.Flags().BoolP("full", "f", false, "Show the function listing")
	rootCmd.AddCommand(scanCmd)
}
