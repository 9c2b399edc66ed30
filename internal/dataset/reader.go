// Package dataset reads swept-laser measurement files and groups them by
// wire bond.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
)

// WavelengthColumn names the row holding the wavelength axis.
const WavelengthColumn = "wavelength"

// Table is a measurement file keyed by column name. Files are stored
// transposed: each CSV row is a column name followed by its values.
type Table struct {
	Names   []string
	Columns map[string][]string
}

// ReadTable parses a transposed CSV. Lines starting with '#' are comments
// and trailing empty fields are dropped.
func ReadTable(
	r io.Reader,
) (
	*Table, error,
) {

	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: make(map[string][]string)}
	for _, row := range rows {
		for len(row) > 0 && strings.TrimSpace(row[len(row)-1]) == "" {
			row = row[:len(row)-1]
		}
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if _, ok := t.Columns[name]; ok {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.Names = append(t.Names, name)
		t.Columns[name] = row[1:]
	}

	return t, nil
}

// Floats parses column name as float64 values.
func (t *Table) Floats(
	name string,
) (
	[]float64, error,
) {

	col, ok := t.Columns[name]
	if !ok {
		return nil, fmt.Errorf("no column %q (have %s)", name, strings.Join(t.Names, ", "))
	}

	values := make([]float64, len(col))
	for i, s := range col {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q value %d: %w", name, i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

// Spectrum extracts the wavelength axis and one channel.
func (t *Table) Spectrum(
	name, channel string,
	bond int,
) (
	calib.Spectrum, error,
) {

	wavelength, err := t.Floats(WavelengthColumn)
	if err != nil {
		return calib.Spectrum{}, err
	}
	power, err := t.Floats(channel)
	if err != nil {
		return calib.Spectrum{}, err
	}
	if len(wavelength) != len(power) {
		return calib.Spectrum{}, fmt.Errorf(
			"%d wavelengths but %d values in channel %q",
			len(wavelength), len(power), channel,
		)
	}

	return calib.Spectrum{
		Name:       name,
		Bond:       bond,
		Wavelength: wavelength,
		Power:      power,
	}, nil
}

// ReadSpectrum reads one channel of the measurement file at path.
func ReadSpectrum(
	path, channel string,
	bond int,
) (
	calib.Spectrum, error,
) {

	f, err := os.Open(path)
	if err != nil {
		return calib.Spectrum{}, err
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return calib.Spectrum{}, fmt.Errorf("%s: %w", path, err)
	}

	s, err := t.Spectrum(filepath.Base(path), channel, bond)
	if err != nil {
		return calib.Spectrum{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadReference reads and validates the reference sweep. Any failure is
// reported as a ReferenceReadError or an InvalidSpectrumError.
func ReadReference(path, channel string) (calib.Spectrum, error) {
	s, err := ReadSpectrum(path, channel, 0)
	if err != nil {
		return calib.Spectrum{}, &calib.ReferenceReadError{Path: path, Err: err}
	}
	if err := s.ValidateReference(); err != nil {
		return calib.Spectrum{}, err
	}
	return s, nil
}
