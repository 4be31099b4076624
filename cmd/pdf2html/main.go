/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// pdf2html converts a single PDF document into a self-contained directory of
// index.html, style.css and per-asset files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/windrose-labs/pdfrender/common"
	"github.com/windrose-labs/pdfrender/engine"
	"github.com/windrose-labs/pdfrender/safety"
)

// Exit codes, fixed by the CLI's contract with callers.
const (
	exitOK          = 0
	exitUsage       = 1
	exitParseError  = 2
	exitUnsupported = 3
	exitTimeout     = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pdf2html", flag.ContinueOnError)
	pages := fs.String("pages", "", "page range to render, \"start:end\" 1-based inclusive (default: whole document)")
	zoom := fs.Float64("zoom", 1.0, "multiplicative scale applied to each page's reported size")
	dpi := fs.Float64("dpi", 0, "effective resolution for page sizing and raster image resampling (0: native 72 dpi)")
	timeout := fs.Duration("timeout", 0, "wall-clock deadline for the whole conversion (0: none)")
	ownerPassword := fs.String("owner-password", "", "owner password to try against an encrypted document")
	userPassword := fs.String("user-password", "", "user password to try against an encrypted document")
	fallback := fs.Bool("fallback", false, "replace unsupported filters/features with an empty payload instead of aborting")
	correctVisibility := fs.Bool("correct-text-visibility", false, "drop text fully covered by a later opaque paint")
	embedAssets := fs.Bool("embed", true, "inline fonts and images as data URIs instead of writing them as separate files")
	audit := fs.Bool("audit", false, "run the pre-flight safety audit and print its report instead of converting")
	verbose := fs.Bool("v", false, "log at debug level to stdout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] input.pdf output-dir\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *verbose {
		common.SetLogger(common.NewConsoleLogger(common.LogLevelDebug))
	}

	if *audit {
		if fs.NArg() != 1 {
			fmt.Fprintln(fs.Output(), "usage: pdf2html -audit input.pdf")
			return exitUsage
		}
		return runAudit(fs.Arg(0))
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return exitUsage
	}
	inputPath, outputDir := fs.Arg(0), fs.Arg(1)

	pageStart, pageEnd, err := parsePageRange(*pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdf2html: %v\n", err)
		return exitUsage
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdf2html: %v\n", err)
		return exitUsage
	}

	opts := []engine.Option{
		engine.WithZoom(*zoom),
		engine.WithDPI(*dpi),
		engine.WithTimeout(*timeout),
		engine.WithPasswords(*ownerPassword, *userPassword),
		engine.WithFallback(*fallback),
		engine.WithCorrectTextVisibility(*correctVisibility),
		engine.WithEmbedAssets(*embedAssets, *embedAssets, *embedAssets),
	}
	if pageStart > 0 {
		opts = append(opts, engine.WithPageRange(pageStart, pageEnd))
	}
	cfg := engine.NewConfig(opts...)

	result := engine.ConvertPDF(data, cfg)
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "pdf2html: %v\n", result.Err)
		return exitCodeFor(result.Err)
	}

	if err := writeBundle(outputDir, result.Bundle, *embedAssets); err != nil {
		fmt.Fprintf(os.Stderr, "pdf2html: %v\n", err)
		return exitUsage
	}
	return exitOK
}

// runAudit scans the raw bytes of `path` and prints the pre-flight safety
// report without running a full conversion, for a collaborator who wants to
// triage a suspicious document cheaply.
func runAudit(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdf2html: %v\n", err)
		return exitUsage
	}
	a := safety.RunAudit(data)
	fmt.Printf("size:                 %d bytes\n", a.SizeBytes)
	fmt.Printf("objects:              %d\n", a.ObjectCount)
	fmt.Printf("max /Kids chain:      %d\n", a.MaxKidsChainLength)
	fmt.Printf("risk score:           %d/100\n", a.RiskScore)
	return exitOK
}

// parsePageRange parses "start:end" into 1-based inclusive bounds. An empty
// spec returns (0, 0), a sentinel the caller reads as "use the default
// range" rather than applying WithPageRange at all.
func parsePageRange(spec string) (start, end int, err error) {
	if spec == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(spec, ":", 2)
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -pages %q: %w", spec, err)
	}
	if len(parts) == 1 {
		return start, start, nil
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -pages %q: %w", spec, err)
	}
	return start, end, nil
}

// writeBundle writes index.html, style.css and any non-embedded font/image
// files from bundle into dir, creating it if necessary. Font files are only
// written when embedded is false: when true, the font bytes already ride
// along as data URIs in the @font-face rules inside index.html and a
// separate copy on disk would never be referenced.
func writeBundle(dir string, bundle *engine.OutputBundle, embedded bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), bundle.HTML, 0o644); err != nil {
		return err
	}
	if len(bundle.CSS) > 0 {
		if err := os.WriteFile(filepath.Join(dir, "style.css"), bundle.CSS, 0o644); err != nil {
			return err
		}
	}
	if !embedded {
		for _, rf := range bundle.Fonts {
			if rf.Filename == "" || len(rf.Data) == 0 {
				continue
			}
			fontDir := filepath.Join(dir, "fonts")
			if err := os.MkdirAll(fontDir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(fontDir, rf.Filename), rf.Data, 0o644); err != nil {
				return err
			}
		}
	}
	if len(bundle.Images) > 0 {
		imgDir := filepath.Join(dir, "images")
		if err := os.MkdirAll(imgDir, 0o755); err != nil {
			return err
		}
		for name, data := range bundle.Images {
			if err := os.WriteFile(filepath.Join(imgDir, name), data, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

// exitCodeFor maps a classified engine error to the CLI's exit-code
// contract.
func exitCodeFor(err error) int {
	switch {
	case common.IsKind(err, common.KindTimeout):
		return exitTimeout
	case common.IsKind(err, common.KindUnsupported):
		return exitUnsupported
	case common.IsKind(err, common.KindParse),
		common.IsKind(err, common.KindZipBomb),
		common.IsKind(err, common.KindFont),
		common.IsKind(err, common.KindRender),
		common.IsKind(err, common.KindText),
		common.IsKind(err, common.KindIO),
		common.IsKind(err, common.KindConfig):
		return exitParseError
	default:
		return exitParseError
	}
}
