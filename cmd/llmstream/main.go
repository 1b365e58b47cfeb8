// llmstream decodes vendor LLM responses through the provider adapters.
//
// It replays captured streams, decodes saved response bodies, prints
// endpoint URLs, and can send a raw request body to a live vendor:
//
//	llmstream replay --provider anthropic capture.sse
//	llmstream decode --provider openai --shape embedding body.json
//	llmstream url --provider cohere --endpoint chat
//	llmstream send --model claude-sonnet-4-5 --body request.json
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// command is one llmstream subcommand.
type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{name: "replay", summary: "decode a captured streaming body", run: runReplay},
	{name: "decode", summary: "decode a saved non-streaming body", run: runDecode},
	{name: "url", summary: "print the vendor URL for an endpoint kind", run: runURL},
	{name: "send", summary: "send a request body to a live vendor", run: runSend},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printHelp()
		return nil
	}

	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:])
		}
	}

	printHelp()
	return fmt.Errorf("unknown command %q", args[0])
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `llmstream decodes vendor LLM responses through the provider adapters.

Usage:
  llmstream <command> [flags]

Commands:
`)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, `
Provider settings come from meridian-stream.yaml (or --config) and API keys
from the environment or the nearest .env file.

Run "llmstream <command> --help" for command flags.
`)
}
