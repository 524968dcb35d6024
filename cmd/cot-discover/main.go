// Command cot-discover browses for TAK servers announced over DNS-SD.
//
// Usage:
//
//	cot-discover [flags]
//
// Flags:
//
//	-iface string      Network interface to browse on
//	-timeout duration  How long to browse (default 10s)
//	-first             Stop after the first server found
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cot-protocol/cot-go/pkg/discovery"
)

func main() {
	ifaceName := flag.String("iface", "", "Network interface to browse on")
	timeout := flag.Duration("timeout", 10*time.Second, "How long to browse")
	first := flag.Bool("first", false, "Stop after the first server found")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := discovery.Config{Interface: *ifaceName}

	if *first {
		srv, err := discovery.FindFirst(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printServer(srv)
		return
	}

	results, err := discovery.Browse(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	found := 0
	for srv := range results {
		printServer(srv)
		found++
	}
	fmt.Printf("%d server(s) found\n", found)
}

func printServer(srv *discovery.Server) {
	fmt.Printf("%s\n", srv.InstanceName)
	fmt.Printf("  address: %s\n", srv.Addr())
	if len(srv.Addresses) > 1 {
		fmt.Printf("  all:     %s\n", strings.Join(srv.Addresses, ", "))
	}
	if srv.APIVersion != "" {
		fmt.Printf("  api:     %s\n", srv.APIVersion)
	}
}
