package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/featurekit"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of featurekit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "featurekit version %s (%s)\n", featurekit.Version, runtime.Version())
		},
	}
}
