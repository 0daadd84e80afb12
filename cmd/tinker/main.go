// Command tinker is a terminal AI coding assistant. It runs an agentic chat
// loop against a configurable LLM provider, letting the model read, edit,
// and run things in the current directory with per-call approval.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
