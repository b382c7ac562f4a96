package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/hop/internal/daemon"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the router in the foreground",
	Long: `Run the hop router in the foreground.

The router will:
  1. Load configuration and the routing table
  2. Initialize logging, metrics and the optional packet trace
  3. Open a raw socket on every interface matching interfaces.match
  4. Forward frames until SIGTERM or SIGINT; SIGHUP reloads logging

Examples:
  hop start -c /etc/hop/config.yml
  hop start -c r1.yml --pidfile /run/hop-r1.pid`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStart(configFile, pidFile); err != nil {
			exitWithError("router failed", err)
		}
	},
}

func init() {
	startCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "/var/run/hop.pid",
		"PID file path (empty to disable)")
}

func runStart(configPath, pidPath string) error {
	d, err := daemon.New(configPath, pidPath)
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		d.Stop()
		return err
	}
	return d.Run()
}
