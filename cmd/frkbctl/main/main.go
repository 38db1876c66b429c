// Command frkbctl is the operator CLI binary; see cmd/frkbctl for the
// command tree itself.
package main

import (
	"os"

	"github.com/coderdj/frkb-engine/cmd/frkbctl"
)

func main() {
	if err := frkbctl.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
