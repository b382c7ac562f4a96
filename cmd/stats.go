package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/hop/internal/command"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show counters and the ARP cache of a running router",
	Long:  `Query the running router over its control socket and print its frame counters and resolved neighbors.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStats(command.NewUDSClient(controlSocket, 5*time.Second), os.Stdout); err != nil {
			exitWithError("failed to query router", err)
		}
	},
}

func runStats(client *command.UDSClient, w io.Writer) error {
	ctx := context.Background()
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	stats, err := client.RouterStats(ctx)
	if err != nil {
		return err
	}
	neighbors, err := client.Neighbors(ctx)
	if err != nil {
		return err
	}
	return printStats(w, status, stats, neighbors)
}

func printStats(w io.Writer, status command.DaemonStatus, stats command.RouterStats, neighbors []command.NeighborInfo) error {
	fmt.Fprintf(w, "hop pid %d, up %s, %d interface(s), %d route(s)\n\n",
		status.PID, time.Duration(status.UptimeSeconds)*time.Second, status.Interfaces, status.Routes)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		name  string
		value uint64
	}{
		{"received", stats.Received},
		{"outgoing", stats.Outgoing},
		{"recv_errors", stats.RecvErrors},
		{"arp", stats.ARP},
		{"ipv4", stats.IPv4},
		{"unsupported", stats.Unsupported},
		{"forwarded", stats.Forwarded},
		{"echo_replies", stats.EchoReplies},
		{"icmp_errors", stats.ICMPErrors},
		{"dropped", stats.Dropped},
		{"send_errors", stats.SendErrors},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", row.name, row.value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nneighbors (%d)\n", len(neighbors))
	if len(neighbors) == 0 {
		return nil
	}
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IP\tMAC\tINTERFACE\tLEARNED")
	for _, n := range neighbors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.IP, n.MAC, n.Interface, n.LearnedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
