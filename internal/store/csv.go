package store

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/i474232898/aemet-solar/internal/common"
	"github.com/i474232898/aemet-solar/internal/solar"
)

// Column layouts of the persisted datasets.
var (
	DailyHeader  = []string{"station", "province", "name", "altitude", "date", "insolation", "lat", "lon"}
	HourlyHeader = []string{"date", "hour", "GL", "DF", "DT"}
)

// CSVStore persists datasets as CSV files with a fixed header.
type CSVStore struct{}

// NewCSVStore creates a new CSVStore.
func NewCSVStore() *CSVStore {
	return &CSVStore{}
}

// LoadDaily reads a daily dataset. A missing file is an empty dataset.
func (s *CSVStore) LoadDaily(path string) ([]solar.ObservationRow, error) {
	records, err := ReadCSV(path, DailyHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]solar.ObservationRow, 0, len(records))
	for i, rec := range records {
		row, err := decodeDaily(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: line %d", path, i+2)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ScanDaily reads a daily dataset like LoadDaily, except that rows whose
// date cannot be parsed are returned as skipped instead of failing the
// whole file.
func (s *CSVStore) ScanDaily(path string) ([]solar.ObservationRow, []solar.SkippedRecord, error) {
	records, err := ReadCSV(path, DailyHeader)
	if err != nil {
		return nil, nil, err
	}

	var skipped []solar.SkippedRecord
	rows := make([]solar.ObservationRow, 0, len(records))
	for i, rec := range records {
		if _, err := solar.ParseDate(strings.TrimSpace(rec[4])); err != nil {
			skipped = append(skipped, solar.SkippedRecord{
				Station: rec[0],
				Reason:  "line " + strconv.Itoa(i+2) + ": invalid date " + strconv.Quote(rec[4]),
			})
			continue
		}
		row, err := decodeDaily(rec)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%s: line %d", path, i+2)
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

// SaveDaily replaces the daily dataset at path.
func (s *CSVStore) SaveDaily(path string, rows []solar.ObservationRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.StationCode,
			r.Province,
			r.Name,
			formatInt(r.Altitude),
			r.DayKey(),
			formatFloat(r.Insolation),
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
		})
	}
	return WriteCSV(path, DailyHeader, records)
}

// LoadHourly reads a per-station hourly dataset. A missing file is an
// empty dataset. The station of each reading is taken from the file name.
// Hours outside FirstHour..LastHour are rejected.
func (s *CSVStore) LoadHourly(path string) ([]solar.HourlyReading, error) {
	records, err := ReadCSV(path, HourlyHeader)
	if err != nil {
		return nil, err
	}

	station := strings.TrimSuffix(filepath.Base(path), solar.HourlyFileSuffix)
	readings := make([]solar.HourlyReading, 0, len(records))
	for i, rec := range records {
		day, err := solar.ParseDate(rec[0])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: line %d: date", path, i+2)
		}
		hour, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "%s: line %d: hour", path, i+2)
		}
		if hour < solar.FirstHour || hour > solar.LastHour {
			return nil, errors.Errorf("%s: line %d: hour %d outside %d..%d", path, i+2, hour, solar.FirstHour, solar.LastHour)
		}

		r := solar.HourlyReading{Station: station, Date: day, Hour: hour}
		if r.Global, err = parseFloat(rec[2]); err != nil {
			return nil, errors.Wrapf(err, "%s: line %d: GL", path, i+2)
		}
		if r.Diffuse, err = parseFloat(rec[3]); err != nil {
			return nil, errors.Wrapf(err, "%s: line %d: DF", path, i+2)
		}
		if r.Direct, err = parseFloat(rec[4]); err != nil {
			return nil, errors.Wrapf(err, "%s: line %d: DT", path, i+2)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// SaveHourly replaces the hourly dataset at path.
func (s *CSVStore) SaveHourly(path string, rows []solar.HourlyReading) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Date.Format(solar.DateLayout),
			strconv.Itoa(r.Hour),
			formatFloat(r.Global),
			formatFloat(r.Diffuse),
			formatFloat(r.Direct),
		})
	}
	return WriteCSV(path, HourlyHeader, records)
}

func decodeDaily(rec []string) (solar.ObservationRow, error) {
	day, err := solar.ParseDate(strings.TrimSpace(rec[4]))
	if err != nil {
		return solar.ObservationRow{}, errors.Wrap(err, "date")
	}
	row := solar.ObservationRow{
		StationCode: rec[0],
		Province:    rec[1],
		Name:        rec[2],
		Date:        day,
	}
	if row.Altitude, err = parseInt(rec[3]); err != nil {
		return row, errors.Wrap(err, "altitude")
	}
	if row.Insolation, err = parseFloat(rec[5]); err != nil {
		return row, errors.Wrap(err, "insolation")
	}
	if row.Latitude, err = parseFloat(rec[6]); err != nil {
		return row, errors.Wrap(err, "lat")
	}
	if row.Longitude, err = parseFloat(rec[7]); err != nil {
		return row, errors.Wrap(err, "lon")
	}
	return row, nil
}

// ReadCSV returns the data records of the file at path, checking the
// header against want. A missing file yields no records.
func ReadCSV(path string, want []string) ([][]string, error) {
	//nolint:gosec // G304: dataset paths come from configuration.
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open dataset")
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(want)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read header", path)
	}
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) != want[i] {
			return nil, errors.Errorf("%s: unexpected header %v, want %v", path, header, want)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read records", path)
	}
	return records, nil
}

// WriteCSV writes the full dataset to a temporary file next to path and
// renames it over path.
func WriteCSV(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	//nolint:gosec // G301: standard permissions for dataset directories.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		cleanup()
		return errors.Wrap(err, "write header")
	}
	if err := w.WriteAll(records); err != nil {
		cleanup()
		return errors.Wrap(err, "write records")
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Wrap(err, "sync")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close")
	}
	//nolint:gosec // G302: datasets are shared read-only artifacts.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "chmod")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}

func parseFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := common.ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n, nil
	}
	// Integer columns holding nulls may have been written as "667.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	n := int(f)
	return &n, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
