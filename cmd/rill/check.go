package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rill/internal/diag"
	"rill/internal/diagfmt"
	"rill/internal/driver"
	"rill/internal/project"
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Check typed-tree dumps for lifetime violations",
	Long: `Check analyzes every *.ast.json dump the front end left behind and
reports temporaries that are dropped while a borrow still points at them,
plus feature gate violations. Without [dir] the project root is discovered
by walking up from the current directory to the nearest rill.toml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	checkCmd.Flags().String("ui", "auto", "interactive progress (auto|on|off)")
	checkCmd.Flags().Bool("disk-cache", false, "reuse results for unchanged dumps")
	checkCmd.Flags().Bool("no-warnings", false, "ignore warnings in diagnostics")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().String("dumps", "", "override the dump directory from rill.toml")
	checkCmd.Flags().String("features", "", "comma-separated feature list overriding [features].enable")
}

func runCheck(cmd *cobra.Command, args []string) error {
	startDir := "."
	if len(args) == 1 {
		startDir = args[0]
	}
	startDir, err := filepath.Abs(startDir)
	if err != nil {
		return err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	enableDiskCache, err := cmd.Flags().GetBool("disk-cache")
	if err != nil {
		return fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if noWarnings && warningsAsErrors {
		return fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	dumpsFlag, err := cmd.Flags().GetString("dumps")
	if err != nil {
		return fmt.Errorf("failed to get dumps flag: %w", err)
	}
	featuresFlag, err := cmd.Flags().GetString("features")
	if err != nil {
		return fmt.Errorf("failed to get features flag: %w", err)
	}

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))

	// A manifest is optional: without one the argument directory itself is
	// treated as the dump directory.
	manifest, haveManifest, err := project.Discover(startDir)
	if err != nil {
		return err
	}

	dumpsDir := startDir
	if haveManifest {
		dumpsDir = manifest.DumpsDir()
	}
	if dumpsFlag != "" {
		if filepath.IsAbs(dumpsFlag) {
			dumpsDir = dumpsFlag
		} else {
			dumpsDir = filepath.Join(startDir, dumpsFlag)
		}
	}

	var features []string
	if featuresFlag != "" {
		for _, name := range strings.Split(featuresFlag, ",") {
			if name = strings.TrimSpace(name); name != "" {
				features = append(features, name)
			}
		}
	} else if haveManifest {
		features = manifest.EnabledFeatures()
	}

	if maxDiagnostics <= 0 && haveManifest {
		maxDiagnostics = manifest.MaxDiagnostics()
	}
	if haveManifest && manifest.Config.Check.WarningsAsErrors {
		warningsAsErrors = true
	}

	opts := driver.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Features:       features,
		Timings:        showTimings,
	}
	if enableDiskCache {
		cache, err := driver.OpenDiskCache("rill")
		if err != nil {
			return fmt.Errorf("failed to open disk cache: %w", err)
		}
		opts.Cache = cache
	}

	var res *driver.Result
	if shouldUseTUI(mode) && format == "pretty" && !quiet {
		res, err = runCheckWithUI(cmd.Context(), dumpsDir, opts)
	} else {
		res, err = driver.CheckDir(cmd.Context(), dumpsDir, opts)
	}
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	for i := range res.Files {
		fr := &res.Files[i]
		if noWarnings {
			fr.Bag = withoutWarnings(fr.Bag)
		}
		fr.Bag.Sort()
	}

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch format {
	case "pretty":
		popts := diagfmt.PrettyOpts{
			Color:     useColor,
			PathMode:  pathMode,
			ShowNotes: withNotes,
			ShowFixes: suggest,
		}
		for i := range res.Files {
			fr := &res.Files[i]
			if fr.Bag.Len() > 0 {
				diagfmt.Pretty(os.Stdout, fr.Bag, fr.Files, popts)
			}
		}
	case "short":
		for i := range res.Files {
			fr := &res.Files[i]
			output := diag.FormatShortDiagnostics(fr.Bag.Items(), fr.Files, withNotes)
			if output != "" {
				fmt.Fprintln(os.Stdout, output)
			}
		}
	case "json":
		jopts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			IncludeFixes:     suggest,
		}
		if err := writeMergedJSON(os.Stdout, res, jopts); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}

	if showTimings {
		printTimings(os.Stdout, res)
	}

	errors, warnings, cached := tally(res)
	if !quiet && format != "json" {
		fmt.Fprintf(os.Stdout, "checked %d dumps: %d errors, %d warnings", len(res.Files), errors, warnings)
		if cached > 0 {
			fmt.Fprintf(os.Stdout, " (%d cached)", cached)
		}
		fmt.Fprintln(os.Stdout)
	}

	if errors > 0 || (warningsAsErrors && warnings > 0) {
		os.Exit(1)
	}
	return nil
}

// writeMergedJSON flattens per-file outputs into one document so that
// `rill check --format json` stays a single JSON value.
func writeMergedJSON(w io.Writer, res *driver.Result, opts diagfmt.JSONOpts) error {
	merged := diagfmt.DiagnosticsOutput{Diagnostics: make([]diagfmt.DiagnosticJSON, 0)}
	for i := range res.Files {
		fr := &res.Files[i]
		part := diagfmt.BuildDiagnosticsOutput(fr.Bag, fr.Files, opts)
		merged.Diagnostics = append(merged.Diagnostics, part.Diagnostics...)
	}
	merged.Count = len(merged.Diagnostics)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(merged)
}

func withoutWarnings(bag *diag.Bag) *diag.Bag {
	filtered := diag.NewBag(int(bag.Cap()))
	for _, d := range bag.Items() {
		if d.Severity != diag.SevWarning {
			filtered.Add(d)
		}
	}
	return filtered
}

func tally(res *driver.Result) (errors, warnings, cached int) {
	for i := range res.Files {
		fr := &res.Files[i]
		if fr.Cached {
			cached++
		}
		for _, d := range fr.Bag.Items() {
			switch d.Severity {
			case diag.SevError:
				errors++
			case diag.SevWarning:
				warnings++
			}
		}
	}
	return errors, warnings, cached
}

func printTimings(w io.Writer, res *driver.Result) {
	for i := range res.Files {
		fr := &res.Files[i]
		if fr.Timing == nil {
			continue
		}
		fmt.Fprintf(w, "timings %s:\n", fr.Path)
		for _, p := range fr.Timing.Phases {
			fmt.Fprintf(w, "  %-10s %7.2f ms", p.Name, p.DurationMS)
			if p.Note != "" {
				fmt.Fprintf(w, "  // %s", p.Note)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "  %-10s %7.2f ms\n", "total", fr.Timing.TotalMS)
	}
}
