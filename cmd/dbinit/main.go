// Command dbinit inspects and applies database initialization ordering.
package main

import (
	"fmt"
	"os"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root, a := newRootCmd()
	root.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	if err := a.run(root); err != nil {
		os.Exit(1)
	}
}
