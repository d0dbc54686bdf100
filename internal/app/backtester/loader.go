package backtester

import (
	"encoding/csv"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"swarmbt/internal"
)

// returnsFile is the JSON on-disk format: one row of simple returns per
// asset, all rows the same length.
type returnsFile struct {
	Assets  []string    `json:"assets"`
	Returns [][]float64 `json:"returns"`
}

// LoadReturns reads a return matrix from a .json or .csv file. Loading is
// app-layer responsibility; the core only ever sees validated matrices.
func LoadReturns(path string) (*internal.ReturnMatrix, []string, error) {
	switch filepath.Ext(path) {
	case ".json":
		return loadReturnsJSON(path)
	case ".csv":
		return loadReturnsCSV(path)
	default:
		return nil, nil, errors.Errorf("unsupported data file %s (want .json or .csv)", path)
	}
}

func loadReturnsJSON(path string) (*internal.ReturnMatrix, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", path)
	}
	var file returnsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, errors.Wrapf(err, "parse %s", path)
	}
	m, err := internal.NewReturnMatrix(file.Returns)
	if err != nil {
		return nil, nil, err
	}
	return m, file.Assets, nil
}

// loadReturnsCSV expects a header of asset names and one row per time step.
func loadReturnsCSV(path string) (*internal.ReturnMatrix, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(records) < 2 {
		return nil, nil, errors.Errorf("%s: need a header and at least one row", path)
	}
	names := records[0]
	rows := make([][]float64, len(names))
	for i := range rows {
		rows[i] = make([]float64, len(records)-1)
	}
	for t, record := range records[1:] {
		if len(record) != len(names) {
			return nil, nil, errors.Errorf("%s: row %d has %d columns, want %d", path, t+2, len(record), len(names))
		}
		for i, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "%s: row %d column %d", path, t+2, i+1)
			}
			rows[i][t] = v
		}
	}
	m, err := internal.NewReturnMatrix(rows)
	if err != nil {
		return nil, nil, err
	}
	return m, names, nil
}

// SyntheticReturns generates a seeded test universe: asset 0 carries an
// upward drift, the rest are flat noise.
func SyntheticReturns(assets, steps int, seed int64) *internal.ReturnMatrix {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, assets)
	for i := range rows {
		drift := 0.0
		if i == 0 {
			drift = 0.002
		}
		row := make([]float64, steps)
		for t := range row {
			row[t] = drift + rng.NormFloat64()*0.01
		}
		rows[i] = row
	}
	m, err := internal.NewReturnMatrix(rows)
	if err != nil {
		// Generated data is always finite and rectangular.
		panic(err)
	}
	return m
}
