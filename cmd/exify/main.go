package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jrm-1535/exify"
	"github.com/jrm-1535/exify/internal/api/handlers"
	"github.com/jrm-1535/exify/internal/api/middleware"
	"github.com/jrm-1535/exify/internal/config"
	"github.com/jrm-1535/exify/internal/jpeg"
	"github.com/jrm-1535/exify/internal/server"
	"github.com/jrm-1535/exify/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "thumb":
		err = runThumb(os.Args[2:])
	case "dump":
		err = runDump(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Println(config.Version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: exify <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  info  [-json] [-warn] file.jpg...")
	fmt.Fprintln(os.Stderr, "  thumb -in file.jpg -out thumb.jpg [-warn]")
	fmt.Fprintln(os.Stderr, "  dump  [-segments] [-exif] -in file.jpg")
	fmt.Fprintln(os.Stderr, "  serve [-port 8040] [-root dir]")
	fmt.Fprintln(os.Stderr, "  version")
}

var errUsage = errors.New("missing required arguments")

func fail(err error) {
	fmt.Fprintln(os.Stderr, "exify:", err)
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	os.Exit(1)
}

func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print one JSON object per file")
	warn := fs.Bool("warn", false, "report inconsistencies found in files")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	r := exify.NewReader(&exify.Options{Warn: *warn, Logger: cliLogger()})
	enc := json.NewEncoder(os.Stdout)
	var failed int
	for _, path := range fs.Args() {
		info, err := r.GetImageInfo(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
			continue
		}
		if *asJSON {
			if err := enc.Encode(info); err != nil {
				return err
			}
			continue
		}
		for _, e := range info {
			fmt.Printf("%-15s: %s\n", e.Label, e.Value)
		}
		fmt.Println()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, fs.NArg())
	}
	return nil
}

func runThumb(args []string) error {
	fs := flag.NewFlagSet("thumb", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	outPath := fs.String("out", "", "thumbnail output JPEG")
	warn := fs.Bool("warn", false, "report inconsistencies found in the file")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errUsage
	}

	r := exify.NewReader(&exify.Options{Warn: *warn, Logger: cliLogger()})
	thumb, err := r.GetThumbnail(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	if thumb == nil {
		return fmt.Errorf("%s: no thumbnail", *inPath)
	}
	return os.WriteFile(*outPath, thumb, 0o644)
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG")
	segments := fs.Bool("segments", false, "list the segments of the file")
	exifTags := fs.Bool("exif", false, "print every EXIF tag")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errUsage
	}
	if !*segments && !*exifTags {
		*segments = true
	}

	desc, err := jpeg.Read(filepath.Clean(*inPath), nil, jpeg.ReadAll,
		&jpeg.Control{Warn: true, Logger: cliLogger()})
	if desc == nil {
		return err
	}
	if err != nil { // show what could be parsed before the error
		fmt.Fprintln(os.Stderr, err)
	}
	if *segments {
		if _, err := desc.FormatSegments(os.Stdout); err != nil {
			return err
		}
	}
	if *exifTags {
		if err := desc.FormatExif(os.Stdout); err != nil {
			return err
		}
	}
	return err
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", 0, "listen port, overrides EXIFY_PORT")
	root := fs.String("root", "", "served directory, overrides EXIFY_ROOT")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *port != 0 {
		os.Setenv("EXIFY_PORT", fmt.Sprint(*port))
	}
	if *root != "" {
		os.Setenv("EXIFY_ROOT", *root)
	}

	// 1. configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	// 2. logging
	logger := config.SetupLogger(cfg)
	logger.Info("exify starting",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("root", cfg.Root),
		slog.Int("cache_size", cfg.CacheSize),
	)

	// 3. metadata service
	reader := exify.NewReader(&exify.Options{Warn: cfg.Warn, Logger: logger})
	inspector := service.NewInspector(reader, cfg.Root, cfg.CacheSize, cfg.CacheTTL, logger)

	// 4. HTTP server
	srv := server.New(cfg, logger,
		handlers.NewMetadataHandler(inspector, logger),
		handlers.NewHealthHandler(),
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.RequestLogger(logger),
	)
	return srv.Run()
}
