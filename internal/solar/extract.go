package solar

import (
	"strconv"
	"strings"

	"github.com/i474232898/aemet-solar/internal/common"
)

// ExtractResult is the outcome of filtering a fetched batch.
type ExtractResult struct {
	Rows []ObservationRow

	// Skipped lists malformed records and records that exposed insolation
	// but could not be projected (no station code, unparsable date).
	Skipped []SkippedRecord

	// Dropped counts records that do not report insolation at all.
	Dropped int

	// Unparsed counts rows kept with a null insolation because the
	// published value was not a number.
	Unparsed int
}

// ExtractInsolation keeps the records that expose the insolation field and
// projects them to ObservationRow. Records without the field are dropped;
// a malformed record is skipped on its own without failing the batch.
func ExtractInsolation(raw []RawObservation) ExtractResult {
	var res ExtractResult

	for _, rec := range raw {
		if rec.Malformed != "" {
			res.Skipped = append(res.Skipped, SkippedRecord{Station: rec.StationCode, Reason: "malformed record: " + rec.Malformed})
			continue
		}
		if rec.Insolation == nil {
			res.Dropped++
			continue
		}

		code := strings.TrimSpace(rec.StationCode)
		if code == "" {
			res.Skipped = append(res.Skipped, SkippedRecord{Station: rec.Name, Reason: "missing station code"})
			continue
		}

		day, err := ParseDate(strings.TrimSpace(rec.Date))
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRecord{Station: code, Reason: "invalid date " + strconv.Quote(rec.Date)})
			continue
		}

		row := ObservationRow{
			StationCode: code,
			Province:    strings.TrimSpace(rec.Province),
			Name:        strings.TrimSpace(rec.Name),
			Altitude:    parseAltitude(rec.Altitude),
			Date:        day,
		}

		if v := strings.TrimSpace(*rec.Insolation); v != "" {
			hours, err := common.ParseDecimal(v)
			if err != nil {
				res.Unparsed++
			} else {
				row.Insolation = &hours
			}
		}

		res.Rows = append(res.Rows, row)
	}

	return res
}

// Enrich fills station metadata from the reference. Fields published with
// the observation take precedence; coordinates always come from the
// reference and stay nil for unknown stations.
func Enrich(rows []ObservationRow, lookup StationLookup) []ObservationRow {
	if lookup == nil {
		return rows
	}

	out := make([]ObservationRow, len(rows))
	for i, row := range rows {
		st, ok := lookup.Lookup(row.StationCode)
		if ok {
			if row.Province == "" {
				row.Province = st.Province
			}
			if row.Name == "" {
				row.Name = st.Name
			}
			if row.Altitude == nil {
				row.Altitude = st.Altitude
			}
			row.Latitude = st.Latitude
			row.Longitude = st.Longitude
		}
		out[i] = row
	}
	return out
}

func parseAltitude(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := common.ParseDecimal(s)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}
