package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the siglocate log file",
	Long: `Logs prints siglocate.log from the configuration directory. With
--follow it keeps waiting for new lines, which is how a host's attach-time
output is watched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := logPath(cmd)
		if err != nil {
			return err
		}
		follow, _ := cmd.Flags().GetBool("follow")
		return printLog(cmd.Context(), cmd.OutOrStdout(), path, follow)
	},
}

// printLog copies the log at path to w. With follow it returns only when
// ctx is done.
func printLog(ctx context.Context, w io.Writer, path string, follow bool) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Wait()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(w, line.Text)
		}
	}
}

func init() {
	logsCmd.Flags().BoolP("follow", "F", false, "Wait for new lines")
	rootCmd.AddCommand(logsCmd)
}
