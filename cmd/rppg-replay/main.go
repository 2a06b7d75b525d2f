// Command rppg-replay runs recorded or synthetic signals through the rPPG pipeline
// offline and exports stored estimates.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
