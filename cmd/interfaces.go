package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"firestige.xyz/hop/internal/config"
	"firestige.xyz/hop/internal/link"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List the interfaces the router would attach to",
	Long: `List the up, non-loopback interfaces with an IPv4 address whose name
matches interfaces.match. No socket is opened.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInterfaces(configFile, os.Stdout); err != nil {
			exitWithError("failed to list interfaces", err)
		}
	},
}

func runInterfaces(configPath string, w io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	sel, err := link.NewSelector(cfg.Interfaces.Match.String(), cfg.Interfaces.Exclude)
	if err != nil {
		return err
	}
	ifaces, err := link.Candidates(sel)
	if err != nil {
		return err
	}
	return printInterfaces(w, ifaces)
}

func printInterfaces(w io.Writer, ifaces link.Interfaces) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tINDEX\tMAC\tIPV4")
	for _, iface := range ifaces {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", iface.Name, iface.Index, iface.MAC, iface.IP)
	}
	return tw.Flush()
}
