package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nsloop/recur"
	"github.com/nsloop/recur/authdomain"
	"github.com/nsloop/recur/dnscache"
	"github.com/nsloop/recur/dnssec"
	"github.com/nsloop/recur/rconfig"
	"github.com/nsloop/recur/rlog"
	"github.com/nsloop/recur/transport"
)

// zoneFileFlag collects repeated -zone name=path flags.
type zoneFileFlag map[string]string

func (z zoneFileFlag) String() string { return "" }

func (z zoneFileFlag) Set(spec string) error {
	name, path, ok := strings.Cut(spec, "=")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("want name=path, got %q", spec)
	}
	z[dns.Fqdn(name)] = path
	return nil
}

// forwardSpecFlag collects repeated -forward zone=ip1,ip2 flags.
type forwardSpecFlag []string

func (f *forwardSpecFlag) String() string { return "" }

func (f *forwardSpecFlag) Set(spec string) error {
	*f = append(*f, spec)
	return nil
}

func loadZones(zoneFiles zoneFileFlag, forwardSpecs forwardSpecFlag) (authdomain.Map, error) {
	m := authdomain.Map{}
	for name, path := range zoneFiles {
		d, err := authdomain.LoadZoneFile(name, path)
		if err != nil {
			return nil, err
		}
		m[name] = d
	}
	for _, spec := range forwardSpecs {
		name, servers, err := authdomain.ParseForwardSpec(spec)
		if err != nil {
			return nil, err
		}
		m[name] = authdomain.NewForwardDomain(name, servers, true, false)
	}
	return m, nil
}

func resolve(ctx context.Context, w *resolver.Worker, name string, qtype uint16) error {
	msg, server, state, err := w.Resolve(ctx, name, qtype, os.Stderr)
	if err == nil {
		fmt.Println(msg)
		fmt.Println(";; SERVER:", server.String())
		fmt.Println(";; DNSSEC:", state.State)
	}
	return err
}

func main() {
	configPath := flag.String("config", "", "path to a JSON rconfig.Limits overlay")
	verbose := flag.Bool("v", false, "log at debug level to stderr")
	zoneFiles := zoneFileFlag{}
	flag.Var(zoneFiles, "zone", "authoritative zone as name=path/to/zonefile, repeatable")
	var forwardSpecs forwardSpecFlag
	flag.Var(&forwardSpecs, "forward", "forward zone as name=ip1,ip2, repeatable")
	flag.Parse()

	level := zapcore.InfoLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	logger, err := rlog.New(rlog.Config{Stdout: true, Level: level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	limits := rconfig.Default()
	if *configPath != "" {
		if limits, err = rconfig.Load(*configPath); err != nil {
			logger.Fatal("loading config", zap.String("path", *configPath), zap.Error(err))
		}
	}

	shared := resolver.NewShared()
	if zones, err := loadZones(zoneFiles, forwardSpecs); err != nil {
		logger.Fatal("loading zones", zap.Error(err))
	} else if len(zones) > 0 {
		shared.Zones.Store(zones)
		logger.Info("loaded zones", zap.Int("count", len(zones)))
	}
	cache := dnscache.NewMemoryWithLimits(limits.MinTTL, limits.MaxTTL, limits.NXTTL)
	w := resolver.NewWorker(shared, limits, cache, transport.NewDialTransport(), dnssec.NewLibVerifier(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go resolver.RunMaintenance(ctx, w, true, time.Minute)

	name := "console.aws.amazon.com."
	if args := flag.Args(); len(args) > 0 {
		name = args[0]
	}
	logger.Info("resolving", zap.String("name", name))
	if err := resolve(ctx, w, name, dns.TypeA); err != nil {
		logger.Error("resolve failed", zap.Error(err))
		os.Exit(1)
	}
}
