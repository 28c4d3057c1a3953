// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// envidump prints datasets, raster lines and tie-point grids of a product
// file.  Schemas, descriptor locations and band definitions come from a YAML
// configuration file (--config or ENVIDUMP_CONFIG); flags override the file.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/bpowers/envisat"
	"github.com/bpowers/envisat/dsd"
	"github.com/bpowers/envisat/internal/config"
	"github.com/bpowers/envisat/metrics"
	"github.com/bpowers/envisat/schema"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

type flags struct {
	config        string
	schemaDir     string
	productType   string
	chronological bool
	mmap          bool
	logLevel      string
	metrics       bool

	dataset string
	field   string
	band    string
	index   int
	count   int
	y       int
	minX    int
	maxX    int
	stepX   int
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "path to the YAML configuration (default: $"+config.EnvVar+")")
	fs.StringVar(&f.schemaDir, "schema-dir", "", "directory of <product_type>/<record>.yaml schemas")
	fs.StringVar(&f.productType, "product-type", "", "product type selecting the schema subdirectory")
	fs.BoolVar(&f.chronological, "chronological", true, "scanlines are stored in chronological order")
	fs.BoolVar(&f.mmap, "mmap", false, "memory-map the product file")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&f.metrics, "metrics", false, "print read counters to stderr when done")

	fs.StringVarP(&f.dataset, "dataset", "d", "", "dataset name")
	fs.StringVarP(&f.field, "field", "f", "dsr_time", "UTC field for the times command")
	fs.StringVarP(&f.band, "band", "b", "", "band or tie-point grid name (default: all configured)")
	fs.IntVarP(&f.index, "index", "i", 0, "first record index")
	fs.IntVarP(&f.count, "count", "n", 1, "number of records or rows; 0 means all")
	fs.IntVar(&f.y, "y", 0, "raster row")
	fs.IntVar(&f.minX, "min-x", 0, "first column")
	fs.IntVar(&f.maxX, "max-x", -1, "last column (default: band width - 1)")
	fs.IntVar(&f.stepX, "step-x", 1, "column step")
}

const usage = `envidump prints the contents of a product file.

Usage:
  envidump [flags] <command> <product>

Commands:
  dsds        list the dataset descriptors
  records     print records of --dataset starting at --index
  line        print row --y of --band, or of every configured band
  tiepoints   print rows of the configured tie-point grids
  times       print the --field timestamp of every record of --dataset

Flags:
`

func run(args []string, stdout, stderr io.Writer) error {
	var f flags
	fs := pflag.NewFlagSet("envidump", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	f.register(fs)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errUsage
	}
	command, path := fs.Arg(0), fs.Arg(1)

	cfg, err := loadConfig(&f, fs)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	d := &dumper{
		cfg:     cfg,
		flags:   &f,
		out:     stdout,
		logger:  logger,
		metrics: metrics.New(reg),
	}

	cmd, ok := commands[command]
	if !ok {
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	if err := d.open(path); err != nil {
		return err
	}
	defer d.close()

	if err := cmd(d); err != nil {
		if envisat.IsFormatError(err) {
			logger.Error("product does not match its schemas", "product", path, "err", err)
		}
		return err
	}
	if f.metrics {
		return printMetrics(stderr, reg)
	}
	return nil
}

func loadConfig(f *flags, fs *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.config != "":
		cfg, err = config.LoadFile(f.config)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if fs.Changed("schema-dir") {
		cfg.SchemaDir = f.schemaDir
	}
	if fs.Changed("product-type") {
		cfg.ProductType = f.productType
	}
	if fs.Changed("chronological") {
		cfg.ChronologicalOrder = f.chronological
	}
	if fs.Changed("mmap") {
		cfg.Mmap = f.mmap
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SchemaDir == "" || cfg.ProductType == "" {
		return nil, fmt.Errorf("%w: schema_dir and product_type are required", config.ErrInvalid)
	}
	return cfg, nil
}

type dumper struct {
	cfg     *config.Config
	flags   *flags
	out     io.Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
	product *envisat.Product
}

func (d *dumper) open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	dsds, err := dsd.ReadTable(f, d.cfg.DSD.Offset, d.cfg.DSD.Count, d.cfg.DSD.BlockSize)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	d.product, err = envisat.Open(path, d.cfg.ProductType, dsds,
		schema.NewDirProvider(d.cfg.SchemaDir, d.cfg.Parameters),
		envisat.WithLogger(d.logger),
		envisat.WithMissingValue(d.cfg.MissingValue),
		envisat.WithChronologicalOrder(d.cfg.ChronologicalOrder),
		envisat.WithMetrics(d.metrics),
		envisat.WithMmap(d.cfg.Mmap))
	return err
}

func (d *dumper) close() {
	if d.product == nil {
		return
	}
	if err := d.product.Close(); err != nil {
		d.logger.Warn("closing product", "err", err)
	}
}

func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("reg.Gather: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
