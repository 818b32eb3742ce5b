// Command sagasu indexes personal document sources and answers exact
// token lookups against the latest snapshot.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/sagasu/cmd/sagasu/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
