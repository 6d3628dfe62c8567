// Command pdfverify reads a signed PDF and prints a JSON verification
// report to stdout, one entry per signature field found.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/veridoc/pdfverify"
	"github.com/veridoc/pdfverify/internal/engineconfig"
)

func main() {
	flags := flag.NewFlagSet("pdfverify", flag.ExitOnError)

	var configPath string
	var verbose bool
	flags.StringVar(&configPath, "config", "", "path to a TOML config file (optional)")
	flags.BoolVar(&verbose, "verbose", false, "log per-field verification failures to stderr")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input.pdf>\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Verify the signature fields of a PDF and print a JSON report.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	if flags.NArg() < 1 {
		flags.Usage()
		os.Exit(2)
	}

	cfg := engineconfig.Default()
	if configPath != "" {
		loaded, err := engineconfig.Load(configPath)
		if err != nil {
			log.Fatalf("failed to load config %q: %v", configPath, err)
		}
		cfg = loaded
	}
	if verbose {
		cfg.Log.Verbose = true
	}

	input := flags.Arg(0)
	data, err := os.ReadFile(input)
	if err != nil {
		log.Fatalf("failed to read %q: %v", input, err)
	}

	logger := log.New(os.Stderr, "pdfverify: ", log.LstdFlags)
	opts := pdfverify.Options{ExpiringSoonDays: cfg.Validation.ExpiringSoonDays}
	if cfg.Log.Verbose {
		opts.Logger = logger
	}

	result, err := pdfverify.VerifyWithOptions(data, time.Now(), opts)
	if err != nil {
		log.Fatalf("verification failed: %v", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode report: %v", err)
	}
	fmt.Println(string(encoded))
}
