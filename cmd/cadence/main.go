// Command cadence inspects retry policies: it validates policy documents and simulates the delays a
// policy's schedule would produce.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
