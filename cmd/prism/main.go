// Command prism analyzes how different outlets cover the same story.
//
// Usage:
//
//	prism analyze <query>     Ingest, cluster and score coverage for a query
//	prism clusters            List stored clusters
//	prism cluster <id>        Show a stored cluster with its articles
//	prism article <id>        Show a stored article and its scores
//	prism trace <file>        View a JSONL pipeline trace
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "prism: %v\n", err)
		os.Exit(1)
	}
}
