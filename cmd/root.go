package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var (
	configPath string
	verbose    bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "courtbooker",
		Short: "Checks and books court time on the club reservation site",
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-discovered)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newBookCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMonitorCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
