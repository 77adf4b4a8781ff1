package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		closeLogs()
		os.Exit(1)
	}
	exit(0)
}
