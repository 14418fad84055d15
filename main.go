package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/spatialbytes/neonstack/config"
	"github.com/spatialbytes/neonstack/core"
	"github.com/spatialbytes/neonstack/neonapi"
	"github.com/spatialbytes/neonstack/stacker"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file")
	stackFlag := flag.String("stack", "", "Stack the downloaded data package in this folder (default: the configured data dir)")
	outFlag := flag.String("out", "", "Write stacked output under this folder (default: the input folder)")
	packageFlag := flag.String("package", "", "Download package to stack: basic or expanded (default: detect)")
	serveFlag := flag.Bool("serve", false, "Serve the stacked bundle over HTTP and Arrow Flight instead of writing files")
	flag.Parse()

	if err := config.InitConfig(*configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := core.WithDefaultLogger(context.Background(), "main")

	folder := *stackFlag
	if folder == "" {
		folder = config.Config.DataDir
	}
	if folder == "" {
		flag.Usage()
		os.Exit(2)
	}

	s := stacker.New()
	s.Package = *packageFlag
	s.Parallelism = config.Config.Parallelism
	s.API = neonapi.New(config.Config.ApiURL, config.Config.Token)
	if err := s.Initialize(); err != nil {
		core.Errorf(ctx, "Failed to initialize stacker: %v", err)
		os.Exit(1)
	}
	defer s.Close()

	bundle, err := s.Stack(ctx, folder)
	if err != nil {
		core.Errorf(ctx, "Stacking failed: %v", err)
		os.Exit(1)
	}
	for _, name := range bundle.Names() {
		if tab, ok := bundle.Tables[name]; ok {
			core.Infof(ctx, "Stacked table %s (%d rows)", name, tab.NumRows())
		}
	}

	if !*serveFlag {
		outdir := *outFlag
		if outdir == "" {
			outdir = folder
		}
		if err := stacker.WriteBundle(s.Fs, bundle, outdir); err != nil {
			core.Errorf(ctx, "Failed to write stacked files: %v", err)
			os.Exit(1)
		}
		core.Infof(ctx, "Stacked files written to %s/stackedFiles", outdir)
		return
	}

	server := stacker.NewServer(bundle)
	core.Infof(ctx, "Bundle server running at http://localhost:%d", config.Config.Port)
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", config.Config.Port), server.Mux()); err != nil {
			core.Errorf(ctx, "Failed to start bundle server: %v", err)
			os.Exit(1)
		}
	}()

	if err := stacker.StartFlightServer(ctx, bundle, config.Config.FlightPort); err != nil {
		core.Errorf(ctx, "Failed to start Flight server: %v", err)
		os.Exit(1)
	}
}
