package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Giulio2002/bpkv"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `bpkv - ordered in-memory key-value store with dump persistence

Usage:
  bpkv [-db file] [-config file.yaml] [-log-level level] <command> [args]

Commands:
  put <key> <value>    Store a value
  get <key>            Print a value
  del <key>            Delete a key
  exists <key>         Print true or false
  scan [from to]       Print entries in key order, optionally within [from, to]
  count                Print the number of live entries
  stats                Print engine statistics
  version              Print the version

Examples:
  bpkv -db fruit.db put apple red
  bpkv -db fruit.db scan banana fig`)
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func run(args []string, stdout, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet("bpkv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	dbPath := fs.String("db", "bpkv.db", "Dump file to load and save")
	configPath := fs.String("config", "", "YAML options file")
	logLevel := fs.String("log-level", "warn", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return errUsage
	}

	command, cargs := rest[0], rest[1:]
	switch command {
	case "help":
		printUsage(stdout)
		return nil
	case "version":
		fmt.Fprintln(stdout, bpkv.Version())
		return nil
	}

	logger, err := newLogger(*logLevel, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts := bpkv.DefaultOptions()
	if *configPath != "" {
		if opts, err = bpkv.LoadOptions(*configPath); err != nil {
			return err
		}
	}
	opts.Logger = logger

	db, err := bpkv.Open(*dbPath, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	switch command {
	case "put":
		if len(cargs) != 2 {
			return fmt.Errorf("put needs <key> <value>")
		}
		return db.Put([]byte(cargs[0]), []byte(cargs[1]))

	case "get":
		if len(cargs) != 1 {
			return fmt.Errorf("get needs <key>")
		}
		val, err := db.Get([]byte(cargs[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", val)

	case "del":
		if len(cargs) != 1 {
			return fmt.Errorf("del needs <key>")
		}
		return db.Delete([]byte(cargs[0]))

	case "exists":
		if len(cargs) != 1 {
			return fmt.Errorf("exists needs <key>")
		}
		fmt.Fprintln(stdout, db.Exists([]byte(cargs[0])))

	case "scan":
		emit := func(k, v []byte) {
			fmt.Fprintf(stdout, "%s\t%s\n", k, v)
		}
		switch len(cargs) {
		case 0:
			db.ForEach(emit)
		case 2:
			db.Range([]byte(cargs[0]), []byte(cargs[1]), emit)
		default:
			return fmt.Errorf("scan takes no arguments or <from> <to>")
		}

	case "count":
		fmt.Fprintln(stdout, db.Len())

	case "stats":
		st := db.Stats()
		fmt.Fprintf(stdout, "count:        %d\n", st.Count)
		fmt.Fprintf(stdout, "memory used:  %d / %d bytes\n", st.MemoryUsed, st.MemoryCap)
		fmt.Fprintf(stdout, "filter bits:  %d\n", st.FilterBits)
		fmt.Fprintf(stdout, "filter fill:  %.2f%%\n", st.FilterFillRate)
		fmt.Fprintf(stdout, "tree height:  %d\n", st.TreeHeight)
		fmt.Fprintf(stdout, "nodes:        %d\n", st.NodeCount)

	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}
