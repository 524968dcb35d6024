// Command cot-publish sends Cursor-on-Target events from the command
// line, for smoke-testing multicast segments and TAK server accounts.
//
// Usage:
//
//	cot-publish [flags]
//
// Flags:
//
//	-config string      YAML configuration file (overrides transport flags)
//	-multicast string   Multicast group address (default "239.2.3.1:6969")
//	-iface string       Network interface for multicast
//	-server string      TAK server address (host:port); enables TLS mode
//	-cert string        Client certificate PEM file (TLS mode)
//	-key string         Client private key PEM file (TLS mode)
//	-ca string          CA certificate PEM file (TLS mode)
//	-passphrase string  Private key passphrase (TLS mode)
//	-insecure           Skip server certificate verification (unsafe)
//	-uid string         Event UID (default "COT-PUBLISH")
//	-type string        Event type code (default "a-f-G")
//	-lat float          Latitude (default 0)
//	-lon float          Longitude (default 0)
//	-callsign string    Contact callsign
//	-count int          Number of events to send (default 1)
//	-interval duration  Delay between events (default 1s)
//	-event-log string   Capture publish events to a CBOR log file
//
// Examples:
//
//	# One event on the default SA multicast group
//	cot-publish -uid TRACK1 -lat 34.05 -lon -118.25 -callsign RAVEN
//
//	# Stream to a TAK server every 5 seconds
//	cot-publish -server tak.example.org:8089 \
//	    -cert client.pem -key client.key -ca ca.pem \
//	    -uid TRACK1 -count 0 -interval 5s
//
//	# Everything from a config file
//	cot-publish -config publisher.yaml -uid TRACK1
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cot-protocol/cot-go/pkg/cert"
	"github.com/cot-protocol/cot-go/pkg/cot"
	"github.com/cot-protocol/cot-go/pkg/log"
	"github.com/cot-protocol/cot-go/pkg/publisher"
	"github.com/cot-protocol/cot-go/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	multicastAddr := flag.String("multicast", transport.DefaultMulticastAddr, "Multicast group address")
	ifaceName := flag.String("iface", "", "Network interface for multicast")
	serverAddr := flag.String("server", "", "TAK server address (host:port)")
	certFile := flag.String("cert", "", "Client certificate PEM file")
	keyFile := flag.String("key", "", "Client private key PEM file")
	caFile := flag.String("ca", "", "CA certificate PEM file")
	passphrase := flag.String("passphrase", "", "Private key passphrase")
	insecure := flag.Bool("insecure", false, "Skip server certificate verification (unsafe)")
	uid := flag.String("uid", "COT-PUBLISH", "Event UID")
	typeCode := flag.String("type", "a-f-G", "Event type code")
	lat := flag.Float64("lat", 0, "Latitude")
	lon := flag.Float64("lon", 0, "Longitude")
	callsign := flag.String("callsign", "", "Contact callsign")
	count := flag.Int("count", 1, "Number of events to send (0 = until interrupted)")
	interval := flag.Duration("interval", time.Second, "Delay between events")
	eventLog := flag.String("event-log", "", "Capture publish events to a CBOR log file")
	flag.Parse()

	pub, err := buildPublisher(*configPath, *multicastAddr, *ifaceName, *serverAddr,
		*certFile, *keyFile, *caFile, *passphrase, *insecure, *eventLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sent := 0
	for {
		ev, err := cot.NewEvent(*uid, *typeCode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ev.SetPoint(*lat, *lon)
		if *callsign != "" {
			ev.SetContact(*callsign, "")
		}

		if err := pub.Publish(ctx, ev); err != nil {
			fmt.Fprintf(os.Stderr, "Publish failed: %v\n", err)
			os.Exit(1)
		}
		sent++
		fmt.Printf("Sent %s (%d)\n", ev.UID, sent)

		if *count > 0 && sent >= *count {
			return
		}

		select {
		case <-ctx.Done():
			fmt.Printf("Interrupted after %d events\n", sent)
			return
		case <-time.After(*interval):
		}
	}
}

func buildPublisher(configPath, multicastAddr, ifaceName, serverAddr,
	certFile, keyFile, caFile, passphrase string, insecure bool, eventLog string) (*publisher.Publisher, error) {

	if configPath != "" {
		cfg, err := publisher.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		return publisher.FromConfig(cfg)
	}

	var logger log.Logger
	if eventLog != "" {
		fl, err := log.NewFileLogger(eventLog)
		if err != nil {
			return nil, err
		}
		logger = fl
	}

	if serverAddr != "" {
		if certFile == "" || keyFile == "" || caFile == "" {
			return nil, fmt.Errorf("TLS mode requires -cert, -key and -ca")
		}

		var bundle *cert.Bundle
		var err error
		if passphrase != "" {
			bundle, err = cert.LoadBundleEncrypted(
				cert.FromFile(certFile), cert.FromFile(keyFile), cert.FromFile(caFile),
				[]byte(passphrase))
		} else {
			bundle, err = cert.LoadBundle(
				cert.FromFile(certFile), cert.FromFile(keyFile), cert.FromFile(caFile))
		}
		if err != nil {
			return nil, err
		}

		return publisher.NewTAKServer(serverAddr, bundle, transport.Config{
			IgnoreInvalid: insecure,
			Logger:        logger,
		})
	}

	var t transport.Transport
	var err error
	if ifaceName != "" {
		t, err = transport.NewMulticastBound(multicastAddr, ifaceName)
	} else {
		t, err = transport.NewMulticast(multicastAddr)
	}
	if err != nil {
		return nil, err
	}
	return publisher.New(t, publisher.Options{Logger: logger}), nil
}
