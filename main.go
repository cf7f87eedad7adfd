// The main package for the quotegrab executable.
package main

import (
	"github.com/quotegrab/quotegrab/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
