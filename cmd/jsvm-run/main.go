// jsvm-run is a command-line tool to run javascript.
//
// It's like node, but less useful.
//
// It runs the javascript files provided on the commandline in order, in one
// shared global scope, until it finishes or an error occurs. If no files are
// provided, this will enter a REPL mode where you can interactively run
// javascript and see the value of each line.
//
// Other than the standard javascript environment, it provides:
//
//	console.log, console.info: write args to stdout
//	console.warn:              write args to stderr in yellow
//	console.error:             write args to stderr in scary red
//	sleep(ms):                 a promise that resolves to ms after ms milliseconds
//
// Flags:
//
//	-v          log engine activity (evals, console lines) to stderr
//	-normalize  NFC-normalize every script before running it
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/augustoroman/jsvm"
	"github.com/augustoroman/jsvm/jsconsole"
	"github.com/peterh/liner"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/unicode/norm"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[91m"
)

func main() {
	var (
		verbose   = flag.Bool("v", false, "Log engine activity to stderr")
		normalize = flag.Bool("normalize", false, "NFC-normalize scripts before running them")
	)
	flag.Parse()

	log := newLogger(*verbose)
	defer log.Sync()
	jsvm.SetLogger(log)

	if err := run(log, *verbose, *normalize, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, colorRed+err.Error()+colorReset)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func run(log *zap.Logger, verbose, normalize bool, files []string) error {
	opts := []jsvm.Option{jsvm.WithLogger(log)}
	if normalize {
		opts = append(opts, jsvm.WithSourceNormalization(norm.NFC))
	}
	e, err := jsvm.NewEngine(opts...)
	if err != nil {
		return err
	}
	defer e.Close()

	console := jsconsole.Config{Stdout: os.Stdout, Stderr: os.Stderr, Colorize: true}
	if verbose {
		console.Logger = log.Named("console")
	}
	if err := console.Inject(e.Context()); err != nil {
		return err
	}

	tasks := newTaskQueue()
	if err := tasks.bindSleep(e.Context()); err != nil {
		return err
	}

	for _, filename := range files {
		if err := runFile(e, filename); err != nil {
			return err
		}
		if err := tasks.drain(); err != nil {
			return err
		}
	}
	if len(files) == 0 {
		if err := repl(e, tasks); err != nil {
			return err
		}
	}
	return tasks.wait()
}

func runFile(e *jsvm.Engine, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return e.Run(string(data), filename)
}

func repl(e *jsvm.Engine, tasks *taskQueue) error {
	s := liner.NewLiner()
	s.SetMultiLineMode(true)
	defer s.Close()

	for {
		jscode, err := s.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		} else if err != nil {
			return err
		}
		s.AppendHistory(jscode)

		result, err := e.Execute(jscode)
		if err != nil {
			fmt.Println(colorRed + err.Error() + colorReset)
		} else {
			fmt.Println(format(result))
		}
		if err := tasks.drain(); err != nil {
			fmt.Println(colorRed + err.Error() + colorReset)
		}
	}
}
