package main

import (
	"fmt"
	"io"
	"os"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runServeCmd(nil, stdout, stderr)
	}

	switch args[1] {
	case "serve", "server":
		return runServeCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "replay":
		return runReplayCmd(args[2:], stdout, stderr)
	case "export":
		return runExportCmd(args[2:], stdout, stderr)
	case "emit":
		return runEmitCmd(args[2:], stdout, stderr)
	case "view":
		return runViewCmd(args[2:], stdout, stderr)
	case "issue-token":
		return runIssueTokenCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "controltower - national logistics control tower")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  controltower serve        Run the control tower (emitter, projector, snapshot scheduler)")
	fmt.Fprintln(w, "  controltower emit         Append one lifecycle event")
	fmt.Fprintln(w, "  controltower verify       Verify snapshot integrity and chain linkage")
	fmt.Fprintln(w, "  controltower replay       Replay a verified snapshot")
	fmt.Fprintln(w, "  controltower export       Export an evidence bundle for regulators")
	fmt.Fprintln(w, "  controltower view         List shipments visible to a role under Geo-RBAC")
	fmt.Fprintln(w, "  controltower issue-token  Mint a regulator session token")
	fmt.Fprintln(w, "")
}
