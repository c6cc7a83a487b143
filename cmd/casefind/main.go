// Command casefind searches a QA test-case catalog with hybrid
// lexical and vector retrieval.
package main

import (
	"fmt"
	"os"

	"github.com/akverma-qa/casefind/cmd/casefind/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
