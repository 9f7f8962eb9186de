package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyuri/zoneconv/internal/document"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	decodeOpts = document.DefaultOptions()
	verbose    bool
	auxPath    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zoneconv",
	Short: "Decode zone-structured document containers",
	Long: `zoneconv is a tool for working with zone-structured document
containers: word-processor (ZWPD), drawing (ZDRW) and presentation (ZPRS)
files.

It can dump the decoded document as text, JSON events or an HTML preview,
inspect file metadata, validate the zone directory, extract pictures and
hex-dump single zones. Damaged files decode to the best partial document;
diagnostics go to stderr.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	decodeOpts.AddFlags(flags)
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log decoding diagnostics at debug level")
	flags.StringVar(&auxPath, "aux", "", "Auxiliary metadata container (print, window and label records)")

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(jsonCmd)
	rootCmd.AddCommand(htmlCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(picturesCmd)
	rootCmd.AddCommand(zoneCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// input is an opened container and its optional auxiliary file
type input struct {
	path string
	f    *os.File
	size int64
	aux  *os.File
}

func openInput(path string) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat input file: %w", err)
	}
	in := &input{path: path, f: f, size: stat.Size()}

	if auxPath != "" {
		aux, err := os.Open(auxPath)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open aux file: %w", err)
		}
		in.aux = aux
	}
	return in, nil
}

func (in *input) Close() {
	in.f.Close()
	if in.aux != nil {
		in.aux.Close()
	}
}

// options returns the decode options from the command line
func (in *input) options() ([]document.Option, error) {
	opts := []document.Option{decodeOpts.Apply(), document.WithLogger(newLogger())}
	if in.aux != nil {
		stat, err := in.aux.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat aux file: %w", err)
		}
		opts = append(opts, document.WithAux(in.aux, stat.Size()))
	}
	return opts, nil
}

func (in *input) open() (*document.Document, error) {
	opts, err := in.options()
	if err != nil {
		return nil, err
	}
	d, err := document.Open(in.f, in.size, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", in.path, err)
	}
	return d, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// createOutput opens path for writing, or stdout when path is empty
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return out, nil
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zoneconv version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	},
}
