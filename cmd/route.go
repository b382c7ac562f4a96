package cmd

import (
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/hop/internal/config"
	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/route"
)

var routeTable string

var routeCmd = &cobra.Command{
	Use:   "route <ip>...",
	Short: "Show the routing decision for addresses",
	Long: `Look up each address in the routing table and print the egress
interface and next hop the router would use.

Examples:
  hop route -c config.yml 10.0.3.9
  hop route --table r1-table.txt 10.0.3.9 192.0.2.1`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRoute(configFile, routeTable, args, os.Stdout); err != nil {
			exitWithError("route lookup failed", err)
		}
	},
}

func init() {
	routeCmd.Flags().StringVarP(&routeTable, "table", "t", "",
		"routing table file (overrides routing_table from the config)")
}

func runRoute(configPath, tablePath string, args []string, w io.Writer) error {
	if tablePath == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		tablePath = cfg.RoutingTable
	}
	table, err := route.Load(tablePath)
	if err != nil {
		return err
	}

	for _, arg := range args {
		dst, err := netip.ParseAddr(arg)
		if err != nil || !dst.Is4() {
			return fmt.Errorf("invalid IPv4 address %q", arg)
		}
		r, ok := table.Lookup(dst)
		switch {
		case !ok:
			fmt.Fprintf(w, "%s: %v\n", dst, core.ErrNoRoute)
		case r.OnLink():
			fmt.Fprintf(w, "%s dev %s (%s, on-link)\n", dst, r.Interface, r.Prefix)
		default:
			fmt.Fprintf(w, "%s via %s dev %s (%s)\n", dst, r.NextHop, r.Interface, r.Prefix)
		}
	}
	return nil
}
