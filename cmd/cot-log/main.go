// Command cot-log views CBOR event logs captured by the publisher.
//
// Log files are written by the log.FileLogger, enabled with the
// cot-publish -event-log flag or the log_file config key.
//
// Usage:
//
//	cot-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     Print events in human-readable form
//	stats    Summarize events by category and connection
//
// Examples:
//
//	# View all events
//	cot-log view events.cbor
//
//	# View only errors
//	cot-log view -category error events.cbor
//
//	# Per-connection counts
//	cot-log stats events.cbor
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/cot-protocol/cot-go/pkg/log"
)

const usage = `cot-log - CoT publisher event log viewer

Usage:
  cot-log <command> [flags] <file.cbor>

Commands:
  view     Print events in human-readable form
  stats    Summarize events by category and connection

Use "cot-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	category := fs.String("category", "", "Filter by category (frame, state, error)")
	connID := fs.String("conn", "", "Filter by connection ID")
	fs.Parse(args)

	filter := log.Filter{ConnectionID: *connID}
	if *category != "" {
		cat, err := parseCategory(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &cat
	}

	events := readEvents(fs, filter)
	for _, e := range events {
		printEvent(e)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)

	events := readEvents(fs, log.Filter{})

	byCategory := make(map[string]int)
	byConn := make(map[string]int)
	var frameBytes int
	for _, e := range events {
		byCategory[e.Category.String()]++
		byConn[e.ConnectionID]++
		if e.Frame != nil {
			frameBytes += e.Frame.Size
		}
	}

	fmt.Printf("Events:      %d\n", len(events))
	fmt.Printf("Frame bytes: %d\n", frameBytes)

	fmt.Println("\nBy category:")
	for _, k := range sortedKeys(byCategory) {
		fmt.Printf("  %-8s %d\n", k, byCategory[k])
	}

	fmt.Println("\nBy connection:")
	for _, k := range sortedKeys(byConn) {
		fmt.Printf("  %-38s %d\n", k, byConn[k])
	}
}

func readEvents(fs *flag.FlagSet, filter log.Filter) []log.Event {
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Expected exactly one log file argument")
		os.Exit(1)
	}

	events, err := log.ReadEventsFile(fs.Arg(0), filter)
	if err != nil {
		fatal(fmt.Errorf("reading %s: %w", fs.Arg(0), err))
	}
	return events
}

func printEvent(e log.Event) {
	ts := e.Timestamp.Format("15:04:05.000")
	prefix := fmt.Sprintf("%s %-8s %-9s %s", ts, e.Category, e.Layer, shortID(e.ConnectionID))

	switch {
	case e.Frame != nil:
		suffix := ""
		if e.Frame.Truncated {
			suffix = " (truncated)"
		}
		fmt.Printf("%s %d bytes%s uid=%s\n", prefix, e.Frame.Size, suffix, e.EventUID)
	case e.StateChange != nil:
		fmt.Printf("%s %s -> %s (%s)\n", prefix, e.StateChange.OldState, e.StateChange.NewState, e.StateChange.Reason)
	case e.Error != nil:
		fmt.Printf("%s [%s] %s\n", prefix, e.Error.Context, e.Error.Message)
	default:
		fmt.Println(prefix)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch s {
	case "frame":
		return log.CategoryFrame, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category %q (frame, state, error)", s)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
