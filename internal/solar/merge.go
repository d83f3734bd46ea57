package solar

import (
	"fmt"
	"sort"
)

// DailyKey selects the deduplication key of a daily dataset.
type DailyKey func(ObservationRow) string

// ByStationDate keys consolidated multi-station datasets.
func ByStationDate(r ObservationRow) string {
	return r.StationCode + "|" + r.DayKey()
}

// ByDate keys per-station datasets, where the station is fixed by the file.
func ByDate(r ObservationRow) string {
	return r.DayKey()
}

// MergeDaily merges incoming rows into existing ones. On a key collision the
// incoming row replaces the existing row as a whole; rows only present in
// existing are kept. The result is sorted by station code, then date.
func MergeDaily(existing, incoming []ObservationRow, key DailyKey) []ObservationRow {
	index := make(map[string]int, len(existing)+len(incoming))
	merged := make([]ObservationRow, 0, len(existing)+len(incoming))

	for _, batch := range [][]ObservationRow{existing, incoming} {
		for _, row := range batch {
			k := key(row)
			if i, ok := index[k]; ok {
				merged[i] = row
				continue
			}
			index[k] = len(merged)
			merged = append(merged, row)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].StationCode != merged[j].StationCode {
			return merged[i].StationCode < merged[j].StationCode
		}
		return merged[i].Date.Before(merged[j].Date)
	})
	return merged
}

// MergeDailyFile merges batch into the dataset stored at path. An empty
// batch leaves the file untouched.
func MergeDailyFile(store DatasetStore, path string, batch []ObservationRow, key DailyKey) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	existing, err := store.LoadDaily(path)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}

	merged := MergeDaily(existing, batch, key)
	if err := store.SaveDaily(path, merged); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return len(merged), nil
}

type hourKey struct {
	day  string
	hour int
}

// MergeHourly merges incoming readings into existing ones keyed by
// (date, hour). Each channel is reconciled on its own: a non-null incoming
// value overwrites, a null incoming value never erases a stored one. The
// result is sorted by date, then hour.
func MergeHourly(existing, incoming []HourlyReading) []HourlyReading {
	index := make(map[hourKey]int, len(existing)+len(incoming))
	merged := make([]HourlyReading, 0, len(existing)+len(incoming))

	for _, batch := range [][]HourlyReading{existing, incoming} {
		for _, r := range batch {
			k := hourKey{r.Date.Format(DateLayout), r.Hour}
			if i, ok := index[k]; ok {
				merged[i] = fillReading(merged[i], r)
				continue
			}
			index[k] = len(merged)
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Date.Before(merged[j].Date)
		}
		return merged[i].Hour < merged[j].Hour
	})
	return merged
}

// fillReading returns old with every channel that is non-null in newer
// taken from newer.
func fillReading(old, newer HourlyReading) HourlyReading {
	if newer.Global != nil {
		old.Global = newer.Global
	}
	if newer.Diffuse != nil {
		old.Diffuse = newer.Diffuse
	}
	if newer.Direct != nil {
		old.Direct = newer.Direct
	}
	if old.Station == "" {
		old.Station = newer.Station
	}
	return old
}

// MergeHourlyFile merges readings into the per-station hourly file at path.
func MergeHourlyFile(store DatasetStore, path string, readings []HourlyReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	existing, err := store.LoadHourly(path)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}

	merged := MergeHourly(existing, readings)
	if err := store.SaveHourly(path, merged); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return len(merged), nil
}
