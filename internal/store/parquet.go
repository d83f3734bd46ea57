package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	parquet "github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/i474232898/aemet-solar/internal/solar"
)

// DailyParquetRow is the columnar layout of exported daily observations.
type DailyParquetRow struct {
	Station    string   `parquet:"station"`
	Province   string   `parquet:"province"`
	Name       string   `parquet:"name"`
	Altitude   *int32   `parquet:"altitude"`
	Date       string   `parquet:"date"`
	Insolation *float64 `parquet:"insolation"`
	Latitude   *float64 `parquet:"lat"`
	Longitude  *float64 `parquet:"lon"`
}

// DailyFiles lists the per-station daily files below dir, sorted by path.
func DailyFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), solar.StationFileSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// ExportDailyParquet loads every daily dataset in paths and writes them as a
// single Parquet file at out. It returns the number of rows written.
func ExportDailyParquet(ds solar.DatasetStore, paths []string, out string) (int, error) {
	var rows []DailyParquetRow
	for _, p := range paths {
		daily, err := ds.LoadDaily(p)
		if err != nil {
			return 0, err
		}
		for _, r := range daily {
			rows = append(rows, toParquetRow(r))
		}
	}

	if err := writeParquet(out, rows); err != nil {
		return 0, errors.Wrapf(err, "write %s", out)
	}
	return len(rows), nil
}

func toParquetRow(r solar.ObservationRow) DailyParquetRow {
	row := DailyParquetRow{
		Station:    r.StationCode,
		Province:   r.Province,
		Name:       r.Name,
		Date:       r.DayKey(),
		Insolation: r.Insolation,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
	}
	if r.Altitude != nil {
		alt := int32(*r.Altitude)
		row.Altitude = &alt
	}
	return row
}

// writeParquet atomically writes rows to path via a .tmp intermediate file.
func writeParquet(path string, rows []DailyParquetRow) error {
	//nolint:gosec // G301: standard permissions for dataset directories.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	//nolint:gosec // G304: export path comes from the command line.
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[DailyParquetRow](f)
	if _, err := w.Write(rows); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
