package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/jakegut/gohpack/config"
	"github.com/jakegut/gohpack/dump"
	"github.com/jakegut/gohpack/hpack"
	"github.com/jakegut/gohpack/http2"
	gohttp2 "golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// referenceServer serves Go's own h2c stack, answering every request with
// the headers it received, to compare against the inspector's output.
func referenceServer(addr string) {
	h2 := &gohttp2.Server{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%s %s %s\n", r.Method, r.URL.Path, r.Proto)
		names := make([]string, 0, len(r.Header))
		for name := range r.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, value := range r.Header[name] {
				fmt.Fprintf(w, "%s: %s\n", strings.ToLower(name), value)
			}
		}
	})

	server := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(handler, h2),
	}

	log.Printf("reference h2c server on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Printf("reference server: %s", err)
	}
}

func serve(cfg *config.Config, d *dump.Dumper, reference string) error {
	var mu sync.Mutex
	srv := &http2.Server{
		Settings:        cfg.ConnectionSettings(),
		Verbose:         cfg.Logger.Verbose,
		MaxStringLength: cfg.Limits.MaxStringLength,
		IndexPolicy:     cfg.IndexPolicy(),

		EncoderTableSize: cfg.Table.EncoderSize,
		OnHeaders: func(streamID uint32, hl hpack.HeaderList, table *hpack.Table) {
			mu.Lock()
			defer mu.Unlock()
			d.Incoming(streamID, hl, table)
		},
	}

	if reference != "" {
		go referenceServer(reference)
	}

	listener, err := net.Listen("tcp4", cfg.Server.Listen)
	if err != nil {
		return err
	}
	defer listener.Close()

	log.Printf("listening on %s", listener.Addr())
	return srv.Serve(listener)
}

func main() {
	var (
		configFile = flag.String("config", "", "YAML config file")
		hexMode    = flag.Bool("hex", false, "decode the hex header blocks given as arguments, in order, with one decoder")
		encodeMode = flag.Bool("encode", false, "encode 'name: value' lines from stdin; a blank line ends a block")
		framesFile = flag.String("frames", "", "decode the header blocks of a captured client byte stream")
		listen     = flag.Bool("listen", false, "accept h2 connections and dump every request block")
		reference  = flag.String("reference", "", "with -listen, also serve Go's h2c stack on this address")
		showTable  = flag.Bool("table", false, "show the dynamic table after every block")
		noColor    = flag.Bool("no-color", false, "disable colored output")
		verbose    = flag.Bool("v", false, "verbose output")
	)

	flag.Parse()
	log.SetFlags(log.Lshortfile)

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *verbose {
		cfg.Logger.Verbose = true
	}
	if *noColor || cfg.Logger.NoColor {
		color.NoColor = true
	}

	d := dump.New(os.Stdout)
	d.ShowTable = *showTable
	d.ShowRepresentation = cfg.Logger.Verbose

	var err error
	switch {
	case *hexMode:
		err = decodeHex(cfg, d, flag.Args())
	case *encodeMode:
		err = encodeLines(cfg, d, os.Stdin)
	case *framesFile != "":
		err = decodeFramesFile(cfg, d, *framesFile)
	case *listen:
		err = serve(cfg, d, *reference)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
