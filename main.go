// The main package for the switch-catalog executable.
package main

import (
	"os"

	"github.com/avdeev/switch-catalog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
