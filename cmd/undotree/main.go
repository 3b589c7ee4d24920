// Package main is the undotree command line tool for inspecting,
// verifying, and merging undo files.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"

	"github.com/dshills/undotree/internal/config"
	"github.com/dshills/undotree/internal/engine/history"
	"github.com/dshills/undotree/internal/engine/undofile"
	"github.com/dshills/undotree/internal/session"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("undotree %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "inspect":
		return cmdInspect(args[1:])
	case "dump":
		return cmdDump(args[1:])
	case "verify":
		return cmdVerify(args[1:])
	case "merge":
		return cmdMerge(args[1:])
	case "path":
		return cmdPath(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "undotree - inspect and manage persistent undo files\n\n")
	fmt.Fprintf(os.Stderr, "Usage: undotree [options] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  inspect <file.undo>                  Summarize an undo file\n")
	fmt.Fprintf(os.Stderr, "  dump [-q query] <file.undo>          Dump an undo file as JSON\n")
	fmt.Fprintf(os.Stderr, "  verify -doc <document> <file.undo>   Check an undo file against its document\n")
	fmt.Fprintf(os.Stderr, "  merge -doc <document> -o <out> <a.undo> <b.undo>\n")
	fmt.Fprintf(os.Stderr, "                                       Merge two undo histories\n")
	fmt.Fprintf(os.Stderr, "  path [-config file] <document>       Print the undo file path for a document\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

// readUndoFile decodes an undo file without checking its digest
// against any document.
func readUndoFile(path string) (undofile.Header, *history.History, error) {
	f, err := os.Open(path)
	if err != nil {
		return undofile.Header{}, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr, err := undofile.DecodeHeader(r)
	if err != nil {
		return hdr, nil, err
	}

	revs := make([]history.Revision, 0, hdr.Revisions)
	for i := 0; i < hdr.Revisions; i++ {
		rev, err := undofile.ReadRevision(r)
		if err != nil {
			return hdr, nil, fmt.Errorf("revision %d: %w", i, err)
		}
		revs = append(revs, rev)
	}

	h, err := history.FromRevisions(revs, hdr.Current)
	if err != nil {
		return hdr, nil, err
	}
	return hdr, h, nil
}

func cmdInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: undotree inspect <file.undo>\n")
	}
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	hdr, h, err := readUndoFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Revisions:  %d\n", hdr.Revisions)
	fmt.Printf("Current:    %d\n", hdr.Current)
	fmt.Printf("Last saved: %d\n", hdr.LastSaved)
	if !hdr.LastSavedTime.IsZero() {
		fmt.Printf("Saved at:   %s\n", hdr.LastSavedTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Digest:     %s\n", hdr.Digest)

	branches := 0
	children := make(map[int]int, h.Len())
	for i := 1; i < h.Len(); i++ {
		rev, _ := h.At(i)
		children[rev.Parent]++
		if children[rev.Parent] == 2 {
			branches++
		}
	}
	fmt.Printf("Branches:   %d\n", branches)
	return 0
}

func cmdDump(args []string) int {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	query := fs.String("q", "", "Filter output with a gjson path query")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: undotree dump [-q query] <file.undo>\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	hdr, h, err := readUndoFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out, err := dumpJSON(hdr, h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *query != "" {
		res := gjson.GetBytes(out, *query)
		if !res.Exists() {
			fmt.Fprintf(os.Stderr, "Error: query %q matched nothing\n", *query)
			return 1
		}
		fmt.Println(res.String())
		return 0
	}

	os.Stdout.Write(out)
	fmt.Println()
	return 0
}

func cmdVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	doc := fs.String("doc", "", "Document the undo file belongs to")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: undotree verify -doc <document> <file.undo>\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	if fs.NArg() != 1 || *doc == "" {
		fs.Usage()
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer f.Close()

	if !undofile.IsValid(f, *doc) {
		fmt.Println("invalid")
		return 1
	}
	fmt.Println("ok")
	return 0
}

func cmdMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	doc := fs.String("doc", "", "Document both histories describe")
	out := fs.String("o", "", "Output undo file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: undotree merge -doc <document> -o <out> <a.undo> <b.undo>\n")
		fmt.Fprintf(os.Stderr, "\nMerges a's divergent revisions onto b's history.\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	if fs.NArg() != 2 || *doc == "" || *out == "" {
		fs.Usage()
		return 2
	}

	_, ours, err := readUndoFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", fs.Arg(0), err)
		return 1
	}
	_, theirs, err := readUndoFile(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", fs.Arg(1), err)
		return 1
	}

	if err := ours.Merge(theirs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: merging: %v\n", err)
		return 1
	}

	err = undofile.WriteAtomic(*out, func(w io.WriteSeeker) error {
		return undofile.Serialize(w, ours, *doc, ours.CurrentRevision(), 0)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: writing %s: %v\n", *out, err)
		return 1
	}

	fmt.Printf("merged %d revisions into %s\n", ours.Len(), *out)
	return 0
}

func cmdPath(args []string) int {
	fs := flag.NewFlagSet("path", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: undotree path [-config file] <document>\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	p, err := session.UndoPathFor(cfg.UndoDir, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(p)
	return 0
}
