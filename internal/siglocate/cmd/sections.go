package cmd

import (
	"github.com/spf13/cobra"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections [file]",
	Short: "List the sections of an image or of a loaded module",
	Long: `Sections prints name, address and size for each section, in the order
the image lists them. Without a file it reads the module named by --target in
this process, which shows the addresses the locator would scan at runtime.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			src source
			err error
		)
		if len(args) == 1 {
			src, err = openFile(args[0])
		} else {
			target, _ := cmd.Flags().GetString("target")
			src, err = openProcess(target)
		}
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), sectionsJSON(src))
		}
		writeSections(cmd.OutOrStdout(), src)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sectionsCmd)
}
