package main

import (
	"os"
)

// Usage example on the command line:
// > go run . add --first Erika --last Mustermann --email work=erika@example.com --phone home="+49 0815 4711"
// > go run . list --last Muster
// > go run . show 1
func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
