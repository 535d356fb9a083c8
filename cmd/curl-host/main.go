// Command curl-host runs a WebAssembly guest against the curl host functions.
//
//	curl-host [-config host.yaml] [-export run] [-input '{"url":"..."}'] guest.wasm
//
// The export must have the signature (i64) -> i64; the input is passed as a
// packed pointer/length and the bytes of the packed result are printed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/RekGRpth/pg-curl-sub000/config"
	"github.com/RekGRpth/pg-curl-sub000/host"
	"github.com/RekGRpth/pg-curl-sub000/infrastructure/parser"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("curl-host failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("curl-host", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML or JSON host configuration")
	export := fs.String("export", "run", "guest export to call")
	input := fs.String("input", "", "request payload passed to the export")
	verbose := fs.Bool("v", false, "log host function calls")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: curl-host [flags] guest.wasm")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	wasmPath := fs.Arg(0)
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("failed to read guest: %w", err)
	}

	m, err := host.Load(cfg, host.WithModuleLogger(logger))
	if err != nil {
		return err
	}
	defer m.Close()

	executor, err := host.NewExecutor(ctx, host.WithModule(m))
	if err != nil {
		return err
	}
	defer executor.Close(ctx)

	name := strings.TrimSuffix(filepath.Base(wasmPath), filepath.Ext(wasmPath))
	g, err := executor.LoadGuest(ctx, name, wasmBytes)
	if err != nil {
		return err
	}

	out, err := g.Call(ctx, *export, []byte(*input))
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	m, err := parser.NewYAMLConfigParser().Parse(data)
	if err != nil {
		return config.Config{}, err
	}
	return config.FromMap(m)
}
