package main

import (
	"fmt"

	"github.com/arloliu/go-peribus/stream"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ports, err := stream.Ports()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(ports) == 0 {
			fmt.Fprintln(out, "no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(out, p)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
