// Command streampay is an operator CLI for the payment-streaming
// engine. It drives a SQLite-backed engine in process; token transfers
// are simulated, so it is a demo and inspection surface rather than a
// custody backend.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
