// Package tables reads the tabular inputs of a run and writes its output tables.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"co2-mcs/internal/model"
)

// header maps lower-cased column names to their position.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

// col returns the position of the first alias present, or -1.
func (h header) col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func (h header) require(table string, aliases ...string) (int, error) {
	if i := h.col(aliases...); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%s table: missing column %q", table, aliases[0])
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func readAll(r io.Reader, table string) (header, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%s table: empty input", table)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s table: reading header: %w", table, err)
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s table: %w", table, err)
	}
	return newHeader(first), rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadParameters parses the long-format scenario parameter table
// (scenario, class, param, value, low, high). Low and high are optional columns.
func ReadParameters(r io.Reader) ([]model.ScenarioParameter, error) {
	h, rows, err := readAll(r, "parameters")
	if err != nil {
		return nil, err
	}
	scol, err := h.require("parameters", "scenario")
	if err != nil {
		return nil, err
	}
	ccol, err := h.require("parameters", "class", "vehicle_class")
	if err != nil {
		return nil, err
	}
	pcol, err := h.require("parameters", "param", "parameter")
	if err != nil {
		return nil, err
	}
	vcol, err := h.require("parameters", "value")
	if err != nil {
		return nil, err
	}
	lcol := h.col("low", "min")
	hcol := h.col("high", "max")

	out := make([]model.ScenarioParameter, 0, len(rows))
	for _, rec := range rows {
		if blank(rec) {
			continue
		}
		out = append(out, model.ScenarioParameter{
			Scenario: cell(rec, scol),
			Class:    model.Class(cell(rec, ccol)),
			Param:    cell(rec, pcol),
			Value:    cell(rec, vcol),
			Low:      cell(rec, lcol),
			High:     cell(rec, hcol),
		})
	}
	return out, nil
}

// ReadEmissionFactors parses the (fuel_type, co2_per_unit) table.
func ReadEmissionFactors(r io.Reader) ([]model.EmissionFactor, error) {
	h, rows, err := readAll(r, "emission factors")
	if err != nil {
		return nil, err
	}
	fcol, err := h.require("emission factors", "fuel_type", "fuel")
	if err != nil {
		return nil, err
	}
	ecol, err := h.require("emission factors", "co2_per_unit", "kgco2_per_l", "kg_co2_per_unit", "ef")
	if err != nil {
		return nil, err
	}

	out := make([]model.EmissionFactor, 0, len(rows))
	for i, rec := range rows {
		if blank(rec) {
			continue
		}
		v, err := strconv.ParseFloat(cell(rec, ecol), 64)
		if err != nil {
			return nil, fmt.Errorf("emission factors table: row %d: %w", i+2, err)
		}
		out = append(out, model.EmissionFactor{FuelType: cell(rec, fcol), CO2PerUnit: v})
	}
	return out, nil
}

var multiplierColumns = map[model.Class][]string{
	model.Truck:    {"mult_truck"},
	model.Tank:     {"mult_tank"},
	model.Aircraft: {"mult_aircraft", "mult_air"},
}

// ReadPhases parses the phase definition table. Empty numeric cells stay unset;
// an empty multiplier cell leaves that class on the default multiplier.
func ReadPhases(r io.Reader) ([]model.Phase, error) {
	h, rows, err := readAll(r, "phases")
	if err != nil {
		return nil, err
	}
	scol, err := h.require("phases", "scenario")
	if err != nil {
		return nil, err
	}
	pcol, err := h.require("phases", "phase", "phase_index")
	if err != nil {
		return nil, err
	}
	share := h.col("share_nominal", "share")
	mean := h.col("mean_duration_days", "mean_days")
	if share < 0 && mean < 0 {
		return nil, errors.New("phases table: need a share_nominal or mean_duration_days column")
	}
	sd := h.col("sd_duration_days", "sd_days")

	out := make([]model.Phase, 0, len(rows))
	for i, rec := range rows {
		if blank(rec) {
			continue
		}
		line := i + 2
		idx, err := strconv.Atoi(cell(rec, pcol))
		if err != nil {
			return nil, fmt.Errorf("phases table: row %d: phase: %w", line, err)
		}
		p := model.Phase{Scenario: cell(rec, scol), Index: idx}
		for _, f := range []struct {
			col int
			dst *float64
		}{{share, &p.Share}, {mean, &p.MeanDays}, {sd, &p.SDDays}} {
			if err := parseOptional(cell(rec, f.col), f.dst); err != nil {
				return nil, fmt.Errorf("phases table: row %d: %w", line, err)
			}
		}
		for _, c := range model.Classes {
			s := cell(rec, h.col(multiplierColumns[c]...))
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("phases table: row %d: multiplier for %s: %w", line, c, err)
			}
			if p.Multipliers == nil {
				p.Multipliers = make(map[model.Class]float64)
			}
			p.Multipliers[c] = v
		}
		out = append(out, p)
	}
	return out, nil
}

func parseOptional(s string, dst *float64) error {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// ReadFile opens path and hands it to read.
func ReadFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
