// Command drift-spine inspects Spine assets and configuration for apps using
// the drift-spine binding.
package main

import (
	"os"

	"github.com/go-drift/drift-spine/cmd/drift-spine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
