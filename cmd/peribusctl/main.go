// Command peribusctl sends single commands to peripheral controllers on a
// serial bus and prints the outcome.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
