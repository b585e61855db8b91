package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra already printed the error; we only set the exit code.
		os.Exit(2)
	}
}
