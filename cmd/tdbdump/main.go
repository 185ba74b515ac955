// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	tdb "github.com/saferwall/tdb"
)

// Exit codes match the original tdbdump CLI so existing scripts and
// automation that branch on them keep working.
const (
	exitOK             = 0
	exitArgumentError  = 2
	exitInputError     = 10
	exitOutputError    = 11
	exitProcessError   = 12
	exitInstallError   = 13
	exitEntryError     = 14
	exitSymlinkError   = 15
	exitModeError      = 16
	exitHTMLReportErr  = 17
	exitESEDBError     = 18
)

var (
	esedbPath    string
	wantHTML     bool
	exploreESEDB bool
	mode         string
	wantMD5      bool
	noMD5        bool
	outDir       string
	quiet        bool
	wantSymlinks bool
	utf8Output   bool
	verbosity    int
)

func main() {
	root := &cobra.Command{
		Use:   "tdbdump [paths...]",
		Short: "Extract thumbnails from Windows thumbnail caches",
		RunE:  run,
	}

	flags := root.Flags()
	flags.StringVarP(&esedbPath, "esedb", "e", "", "path to Windows.edb for cross-referencing")
	flags.BoolVarP(&wantHTML, "html", "H", false, "generate an index.html report")
	flags.BoolVarP(&exploreESEDB, "explore", "i", false, "explore-esedb mode")
	flags.StringVarP(&mode, "mode", "m", "f", "operating mode: f(ile) d(irectory) r(ecursive) a(utomatic)")
	flags.BoolVar(&wantMD5, "md5", true, "compute MD5 of extracted images")
	flags.BoolVar(&noMD5, "nomd5", false, "skip MD5 computation")
	flags.StringVarP(&outDir, "output", "o", ".", "output directory")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	flags.BoolVarP(&wantSymlinks, "symlinks", "s", false, "create name symlinks under .thumbs/")
	flags.BoolVarP(&utf8Output, "utf8", "U", false, "request UTF-8 normalized names")
	flags.CountVarP(&verbosity, "verbose", "v", "increase verbosity (repeatable)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitArgumentError)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && mode != "a" {
		fmt.Fprintln(os.Stderr, "tdbdump: no input paths given")
		os.Exit(exitArgumentError)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "tdbdump: output directory:", err)
		os.Exit(exitOutputError)
	}

	var cr *tdb.CrossReferencer
	if esedbPath != "" || exploreESEDB {
		fmt.Fprintln(os.Stderr, "tdbdump: ESEDB cross-referencing requires an ESE reader, and none is linked into this build")
		os.Exit(exitESEDBError)
	}

	paths, err := resolveInputs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tdbdump:", err)
		os.Exit(exitModeError)
	}

	if noMD5 {
		wantMD5 = false
	}
	sink := newFileSink(outDir, wantMD5, wantSymlinks)
	pipe := tdb.NewPipeline(sink, cr, nil)
	pipe.UTF8 = utf8Output

	var overall tdb.Summary
	for _, p := range paths {
		sum, err := pipe.Run(context.Background(), p)
		overall.ThumbnailsEmitted += sum.ThumbnailsEmitted
		overall.StreamsSkipped += sum.StreamsSkipped
		overall.Anomalies += sum.Anomalies
		if err != nil {
			fmt.Fprintf(os.Stderr, "tdbdump: %s: %v\n", p, err)
			os.Exit(exitProcessError)
		}
		if !quiet {
			fmt.Printf("%s: %d thumbnails, %d skipped, %d anomalies\n",
				p, sum.ThumbnailsEmitted, sum.StreamsSkipped, sum.Anomalies)
		}
	}

	if wantHTML {
		if err := writeReport(filepath.Join(outDir, "index.html"), sink.written); err != nil {
			fmt.Fprintln(os.Stderr, "tdbdump: html report:", err)
			os.Exit(exitHTMLReportErr)
		}
	}

	return nil
}

// resolveInputs expands args according to -m: f takes them as literal
// files, d lists a directory's immediate children, r walks recursively,
// and a auto-discovers the platform's thumbcache files.
func resolveInputs(args []string) ([]string, error) {
	switch mode {
	case "f":
		return args, nil

	case "d":
		var out []string
		for _, dir := range args {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() {
					out = append(out, filepath.Join(dir, e.Name()))
				}
			}
		}
		return out, nil

	case "r":
		var out []string
		for _, root := range args {
			err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() {
					out = append(out, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		return out, nil

	case "a":
		cfg := tdb.ResolveAutoConfig()
		matches, err := filepath.Glob(cfg.ThumbcacheGlob)
		if err != nil {
			return nil, err
		}
		return matches, nil

	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}
