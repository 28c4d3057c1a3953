// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bpowers/envisat"
	"github.com/bpowers/envisat/band"
	"github.com/bpowers/envisat/internal/config"
	"github.com/bpowers/envisat/tiepoint"
)

var commands = map[string]func(d *dumper) error{
	"dsds":      (*dumper).dsds,
	"records":   (*dumper).records,
	"line":      (*dumper).line,
	"tiepoints": (*dumper).tiepoints,
	"times":     (*dumper).times,
}

func (d *dumper) dsds() error {
	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTYPE\tOFFSET\tRECORDS\tRECORD SIZE")
	t := d.product.DSDs()
	for i := 0; i < t.Len(); i++ {
		ds := t.At(i)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n", ds.Index, ds.Name, ds.Kind, ds.Offset, ds.RecordCount, ds.RecordSize)
	}
	return tw.Flush()
}

// span returns the half-open range [first, end) selected by --index and
// --count out of n.
func (d *dumper) span(n int) (int, int, error) {
	first := d.flags.index
	if first < 0 || first >= n {
		return 0, 0, fmt.Errorf("index %d not in [0, %d)", first, n)
	}
	end := n
	if d.flags.count > 0 {
		end = min(first+d.flags.count, n)
	}
	return first, end, nil
}

func (d *dumper) records() error {
	if d.flags.dataset == "" {
		return fmt.Errorf("%w: records needs --dataset", errUsage)
	}
	r, err := d.product.RecordReader(d.flags.dataset)
	if err != nil {
		return err
	}
	first, end, err := d.span(r.NumRecords())
	if err != nil {
		return err
	}

	rec := r.NewRecord()
	for i := first; i < end; i++ {
		if err := r.Read(i, rec); err != nil {
			return err
		}
		fmt.Fprintf(d.out, "record %d: %s", i, rec)
	}
	return nil
}

func (d *dumper) times() error {
	if d.flags.dataset == "" {
		return fmt.Errorf("%w: times needs --dataset", errUsage)
	}
	times, err := d.product.RecordTimes(d.flags.dataset, d.flags.field)
	if err != nil {
		return err
	}
	for i, t := range times {
		fmt.Fprintf(d.out, "%d\t%s\n", i, t.Format("2006-01-02T15:04:05.000000Z"))
	}
	return nil
}

// bandReader opens the line reader for a configured band.
func (d *dumper) bandReader(b config.BandConfig) (*band.LineReader, error) {
	packing, err := b.PackingModel()
	if err != nil {
		return nil, err
	}
	info, err := d.product.BandInfo(b.Name, b.Dataset, b.Field, packing)
	if err != nil {
		return nil, err
	}
	// Validate has already checked the scaling method
	info.ScalingMethod, _ = band.ParseScalingMethod(b.ScalingMethod)
	info.ScalingFactor = b.ScalingFactor
	info.ScalingOffset = b.ScalingOffset
	if b.Width > 0 {
		info.Width = b.Width
	}
	if b.Height > 0 {
		info.Height = b.Height
	}
	if b.Unit != "" {
		info.Unit = b.Unit
	}
	if b.Description != "" {
		info.Description = b.Description
	}
	var opts []band.Option
	if b.MissingValue != nil {
		opts = append(opts, band.WithMissingValue(*b.MissingValue))
	}
	return d.product.NewBandLineReader(info, opts...)
}

func (d *dumper) selectedBands() ([]config.BandConfig, error) {
	if d.flags.band == "" {
		if len(d.cfg.Bands) == 0 {
			return nil, fmt.Errorf("%w: no bands configured", config.ErrInvalid)
		}
		return d.cfg.Bands, nil
	}
	for _, b := range d.cfg.Bands {
		if strings.EqualFold(b.Name, d.flags.band) {
			return []config.BandConfig{b}, nil
		}
	}
	return nil, fmt.Errorf("%w: no band %q", config.ErrInvalid, d.flags.band)
}

func (d *dumper) line() error {
	bands, err := d.selectedBands()
	if err != nil {
		return err
	}

	reqs := make([]envisat.BandRequest, 0, len(bands))
	for _, b := range bands {
		lr, err := d.bandReader(b)
		if err != nil {
			return err
		}
		maxX := d.flags.maxX
		if maxX < 0 {
			maxX = lr.Width() - 1
		}
		req := envisat.BandRequest{
			Reader: lr,
			MinX:   d.flags.minX,
			MaxX:   maxX,
			StepX:  d.flags.stepX,
			MinY:   d.flags.y,
			MaxY:   d.flags.y,
		}
		req.Dst = lr.NewLine(max(req.Samples(), 1))
		reqs = append(reqs, req)
	}

	if err := d.product.ReadBands(context.Background(), reqs); err != nil {
		return err
	}
	for _, req := range reqs {
		info := req.Reader.Info()
		fmt.Fprintf(d.out, "%s[%d]:", info.Name, d.flags.y)
		for i := 0; i < req.Samples(); i++ {
			fmt.Fprintf(d.out, " %s", formatSample(info.Scale(req.Dst.Float64(i))))
		}
		fmt.Fprintln(d.out)
	}
	return nil
}

func (d *dumper) tiepoints() error {
	var grids []config.TiePointConfig
	for _, tp := range d.cfg.TiePoints {
		if d.flags.band == "" || strings.EqualFold(tp.Name, d.flags.band) {
			grids = append(grids, tp)
		}
	}
	if len(grids) == 0 {
		return fmt.Errorf("%w: no tie-point grid %q", config.ErrInvalid, d.flags.band)
	}

	for _, tp := range grids {
		g, err := d.grid(tp)
		if err != nil {
			return err
		}
		first, end, err := d.span(g.Height)
		if err != nil {
			return err
		}
		for y := first; y < end; y++ {
			fmt.Fprintf(d.out, "%s[%d]:", tp.Name, y)
			for _, v := range g.Row(y) {
				fmt.Fprintf(d.out, " %s", formatSample(float64(v)))
			}
			fmt.Fprintln(d.out)
		}
	}
	return nil
}

func (d *dumper) grid(tp config.TiePointConfig) (*tiepoint.Grid, error) {
	values, err := d.bandReader(tp.BandConfig)
	if err != nil {
		return nil, err
	}
	var index *band.LineReader
	if tp.IndexField != "" {
		index, err = d.bandReader(config.BandConfig{
			Name:    tp.Name + "_index",
			Dataset: tp.Dataset,
			Field:   tp.IndexField,
		})
		if err != nil {
			return nil, err
		}
	}
	return d.product.TiePointGrid(values, index, tiepoint.Params{
		OutputWidth:  tp.OutputWidth,
		OffsetX:      tp.OffsetX,
		OffsetY:      tp.OffsetY,
		SubsamplingX: tp.SubsamplingX,
		SubsamplingY: tp.SubsamplingY,
	})
}

func formatSample(v float64) string {
	return strconv.FormatFloat(v, 'g', 7, 64)
}
