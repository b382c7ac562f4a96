// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/hop/internal/config"
)

var (
	// Global flags
	configFile    string
	controlSocket string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hop",
	Short: "hop - a software IPv4 router over raw link-layer sockets",
	Long: `hop is a small multi-interface IPv4 router that works directly on raw
Ethernet frames. It answers ARP for its own addresses, resolves next hops,
forwards IPv4 with TTL handling and generates ICMP errors (time exceeded,
network and host unreachable) and echo replies.

Features:
  - Static routing table with longest-prefix match
  - One raw socket per selected interface, multiplexed in a single event loop
  - Prometheus metrics and an optional pcap trace of every frame`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/hop/config.yml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&controlSocket, "socket", "s", config.DefaultControlSocket,
		"control socket of the running router")

	// Add subcommands
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(interfacesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reloadCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
