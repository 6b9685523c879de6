// Command jamctl is the operator tool for the jam session queue: it mints
// development tokens and imports setlists.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("subcommand required")
	}
	switch args[0] {
	case "token":
		return runToken(args[1:], out)
	case "import":
		return runImport(args[1:], out)
	case "-h", "--help", "help":
		printUsage(out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: jamctl <subcommand> [flags]

Subcommands:
  token    Mint an access token for local testing
  import   Create the songs of a YAML setlist in a jam

Run 'jamctl <subcommand> --help' for subcommand flags.
`)
}
