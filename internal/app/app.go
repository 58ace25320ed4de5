package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "seed":
		return runSeed(args[1:])
	case "sources":
		return runSources(args[1:])
	case "resume":
		return runResume(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "showlist CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  showlist <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate  Validate scrape batch JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  ingest    Save one scrape batch file for a source and venue")
	fmt.Fprintln(os.Stderr, "  seed      Upsert regions, venues and sources from a YAML catalog")
	fmt.Fprintln(os.Stderr, "  sources   List sources with last run and notification state")
	fmt.Fprintln(os.Stderr, "  resume    Re-enable anomaly notifications for a source")
	fmt.Fprintln(os.Stderr, "  serve     Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"showlist <command> -h\" for command-specific flags.")
}
