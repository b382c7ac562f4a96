package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var stopPidFile string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running router",
	Long:  `Send SIGTERM to the router whose PID is recorded in the PID file.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStop(stopPidFile, os.Stdout); err != nil {
			exitWithError("failed to stop router", err)
		}
	},
}

func init() {
	stopCmd.Flags().StringVarP(&stopPidFile, "pidfile", "p", "/var/run/hop.pid", "PID file path")
}

func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file %s: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

func runStop(path string, w io.Writer) error {
	pid, err := readPidFile(path)
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}
	fmt.Fprintf(w, "sent SIGTERM to hop (pid %d)\n", pid)
	return nil
}
