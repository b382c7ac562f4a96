package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/hop/internal/config"
	"firestige.xyz/hop/internal/route"
)

var validatePrint bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and routing table",
	Long: `Validate the configuration file and the routing table it points to
without opening any socket.

Examples:
  hop validate -c config.yml
  hop validate -c config.yml --print    # dump the effective configuration`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(configFile, validatePrint, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validatePrint, "print", false,
		"print the effective configuration as YAML")
}

func runValidate(configPath string, print bool, w io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	table, err := route.Load(cfg.RoutingTable)
	if err != nil {
		return err
	}

	if print {
		out, err := yaml.Marshal(map[string]*config.Config{"router": cfg})
		if err != nil {
			return fmt.Errorf("failed to format config: %w", err)
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "VALID: %d route(s), interfaces matching %q, arp timeout %s\n",
		table.Len(),
		cfg.Interfaces.Match.String(),
		cfg.Timing.ARPTimeout,
	)
	return nil
}
