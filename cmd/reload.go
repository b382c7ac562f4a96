package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/hop/internal/command"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the configuration of a running router",
	Long: `Ask the running router to re-read its configuration file over the control
socket. Only logging settings take effect without a restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReload(command.NewUDSClient(controlSocket, 5*time.Second), os.Stdout); err != nil {
			exitWithError("failed to reload config", err)
		}
	},
}

func runReload(client *command.UDSClient, w io.Writer) error {
	if err := client.ConfigReload(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(w, "configuration reloaded")
	return nil
}
