// Ragnchat is the command-line client for ingesting GitHub repositories and
// chatting with them. Pipelines run in-process against the configured
// vector store and model providers.
//
// Usage:
//
//	ragnchat repo-vectorize --repo octocat/hello-world
//	ragnchat chat --repo octocat/hello-world --prompt "what does it print?"
//	ragnchat interactive --repo octocat/hello-world
package main

import (
	"os"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	c := newCLI()
	if err := c.root.Execute(); err != nil {
		c.printError(err)
		os.Exit(1)
	}
}
