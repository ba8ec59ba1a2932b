package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"compareset/compare"
)

// Global Variables and Constants
var (

	// Logger
	log = logrus.New()

	// Environment Variables
	logLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
)

// Exit codes: 0 when the comparison ran to completion, 1 on structural
// errors, 2 when the run was cancelled.
const (
	exitOK        = 0
	exitError     = 1
	exitCancelled = 2
)

func main() {
	// Initialize logrus logger
	initLogger()
	compare.SetLogLevel(log.GetLevel())

	if len(os.Args) > 1 && os.Args[1] == "serve" {
		runServe(os.Args[2:])
		return
	}

	os.Exit(runCompare(os.Args[1:]))
}

func runCompare(args []string) int {
	fs := flag.NewFlagSet("compareset", flag.ExitOnError)
	oldPath := fs.String("old", "", "Path or URL of the old (baseline) PDF")
	newPath := fs.String("new", "", "Path or URL of the new (revised) PDF")
	presetName := fs.String("preset", "balanced", "Detection preset: "+strings.Join(compare.PresetNames(), ", "))
	mode := fs.String("mode", "raster", "Comparison mode: raster or vector")
	dpi := fs.Int("dpi", 0, "Override the preset's rasterization DPI")
	absDiff := fs.Int("absdiff-threshold", 0, "Override the preset's intensity difference threshold")
	minArea := fs.Int("min-area", 0, "Override the preset's minimum region area in pixels")
	matchIoU := fs.Float64("match-iou", 0, "Override the preset's vector match IoU threshold")
	adaptive := fs.Bool("adaptive", false, "Use adaptive threshold matching in vector mode")
	outDir := fs.String("out", "", "Write report.json and annotated copies into this directory")
	jsonOut := fs.String("json", "", "Write the diff report as JSON to this path")
	annotateOld := fs.String("old-annotated", "", "Write an annotated copy of the old PDF to this path")
	annotateNew := fs.String("new-annotated", "", "Write an annotated copy of the new PDF to this path")
	ignoreSpec := fs.String("ignore", "", "Regions to skip, as x0,y0,x1,y1 in points, semicolon separated")
	workers := fs.Int("workers", 0, "Page workers (default: one per CPU)")
	fs.Parse(args)

	if *oldPath == "" && *newPath == "" && fs.NArg() == 2 {
		*oldPath = fs.Arg(0)
		*newPath = fs.Arg(1)
	}
	if *oldPath == "" || *newPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: compareset --old OLD.pdf --new NEW.pdf [flags]")
		fs.PrintDefaults()
		return exitError
	}
	if *mode != "raster" && *mode != "vector" {
		log.Errorf("Invalid mode %q: expected raster or vector", *mode)
		return exitError
	}

	preset, err := compare.PresetByName(*presetName)
	if err != nil {
		log.Errorf("%v", err)
		return exitError
	}
	params := preset.Params
	if *dpi > 0 {
		params.DPI = *dpi
	}
	if *absDiff > 0 {
		params.AbsDiffThreshold = *absDiff
	}
	if *minArea > 0 {
		params.MinAreaPx = *minArea
	}
	if *matchIoU > 0 {
		params.MatchIoU = *matchIoU
	}
	if *adaptive {
		params.Adaptive = true
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Errorf("Creating output directory: %v", err)
			return exitError
		}
		if *jsonOut == "" {
			*jsonOut = filepath.Join(*outDir, "report.json")
		}
		if *annotateOld == "" {
			*annotateOld = filepath.Join(*outDir, "old_annotated.pdf")
		}
		if *annotateNew == "" {
			*annotateNew = filepath.Join(*outDir, "new_annotated.pdf")
		}
	}

	ignore, err := parseIgnoreRegions(*ignoreSpec)
	if err != nil {
		log.Errorf("Invalid --ignore value: %v", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	oldLocal, cleanupOld, err := fetchIfURL(ctx, *oldPath)
	if err != nil {
		log.Errorf("Fetching old document: %v", err)
		return exitError
	}
	defer cleanupOld()
	newLocal, cleanupNew, err := fetchIfURL(ctx, *newPath)
	if err != nil {
		log.Errorf("Fetching new document: %v", err)
		return exitError
	}
	defer cleanupNew()

	warnNonStandardSize(oldLocal)

	opts := compare.Options{
		Workers: *workers,
		Ignore:  ignore,
		Progress: func(done, total int) {
			log.Debugf("Compared page %d/%d", done, total)
		},
	}

	var result *compare.DiffResult
	if *mode == "vector" {
		result, err = compare.CompareVector(ctx, oldLocal, newLocal, params, opts)
	} else {
		result, err = compare.Compare(ctx, oldLocal, newLocal, params, opts)
	}
	if err != nil {
		if errors.Is(err, compare.ErrCancelled) {
			log.Warn("Comparison cancelled")
			return exitCancelled
		}
		log.Errorf("Comparison failed: %v", err)
		return exitError
	}
	// Report the caller-facing paths, not the temp downloads.
	result.OldPath = *oldPath
	result.NewPath = *newPath

	if *jsonOut != "" {
		if err := result.WriteJSON(*jsonOut); err != nil {
			log.Errorf("%v", err)
			return exitError
		}
	}
	if *annotateOld != "" || *annotateNew != "" {
		annotated := *result
		annotated.OldPath = oldLocal
		annotated.NewPath = newLocal
		if err := compare.Annotate(&annotated, preset, *annotateOld, *annotateNew); err != nil {
			log.Errorf("%v", err)
			return exitError
		}
	}

	printSummary(result)
	return exitOK
}

func printSummary(result *compare.DiffResult) {
	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()

	fmt.Printf("Compared %d page(s) in %dms\n", result.Summary.Pages, result.Summary.ElapsedMS)
	for _, pg := range result.Pages {
		if pg.Err != "" {
			fmt.Printf("  page %d: %s\n", pg.PageIndex+1, yellow("error: %s", pg.Err))
			continue
		}
		if len(pg.Added) == 0 && len(pg.Removed) == 0 {
			continue
		}
		fmt.Printf("  page %d: %s, %s\n", pg.PageIndex+1,
			green("%d added", len(pg.Added)),
			red("%d removed", len(pg.Removed)))
	}
	if result.Summary.TotalAdded == 0 && result.Summary.TotalRemoved == 0 && result.Summary.PageErrors == 0 {
		fmt.Println("No differences found.")
		return
	}
	fmt.Printf("Total: %s, %s\n",
		green("%d added", result.Summary.TotalAdded),
		red("%d removed", result.Summary.TotalRemoved))
}

// parseIgnoreRegions parses "x0,y0,x1,y1;x0,y0,x1,y1" in PDF points.
func parseIgnoreRegions(spec string) ([]compare.RectPDF, error) {
	if spec == "" {
		return nil, nil
	}
	var out []compare.RectPDF
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("region %q: expected 4 comma-separated numbers", part)
		}
		var vals [4]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", part, err)
			}
			vals[i] = v
		}
		if vals[2] <= vals[0] || vals[3] <= vals[1] {
			return nil, fmt.Errorf("region %q: inverted coordinates", part)
		}
		out = append(out, compare.RectPDF{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]})
	}
	return out, nil
}

// warnNonStandardSize logs when the first page is not a recognized ISO
// size, a common sign of a drawing exported with the wrong scale.
func warnNonStandardSize(path string) {
	doc, err := compare.OpenDocument(path)
	if err != nil {
		return
	}
	defer doc.Close()
	if doc.PageCount() == 0 {
		return
	}
	rect, err := doc.PageRect(0)
	if err != nil {
		return
	}
	if label := compare.StandardSizeLabel(rect.Width, rect.Height); label == "" {
		log.Warnf("Page size %.0fx%.0fpt does not match a standard ISO format", rect.Width, rect.Height)
	}
}

func initLogger() {
	switch logLevel {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.Fatalf("Invalid log level: '%s'.", logLevel)
		}
	}

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
