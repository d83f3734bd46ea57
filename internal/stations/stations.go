// Package stations loads the AEMET station inventory used to enrich
// observations with coordinates.
package stations

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/aemet-solar/internal/common"
	"github.com/i474232898/aemet-solar/internal/solar"
	"github.com/i474232898/aemet-solar/internal/store"
)

// Header is the column layout of the station reference file.
var Header = []string{"provincia", "latitud", "longitud", "altitud", "indicativo", "nombre", "indsinop"}

// StationRecord is one row of the station inventory. LatitudeCode and
// LongitudeCode keep the published DDMMSSH codes; Latitude and Longitude
// are nil when the code could not be decoded.
type StationRecord struct {
	Code          string
	Province      string
	Name          string
	Altitude      *int
	LatitudeCode  string
	LongitudeCode string
	Latitude      *float64
	Longitude     *float64
	Synoptic      string
}

// Station returns the enrichment view of the record.
func (r StationRecord) Station() solar.Station {
	return solar.Station{
		Code:      r.Code,
		Province:  r.Province,
		Name:      r.Name,
		Altitude:  r.Altitude,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}

// Decode fills Latitude and Longitude from the published codes. Codes that
// cannot be decoded leave the matching field nil and are reported in the
// returned error.
func (r *StationRecord) Decode() error {
	var errs []string
	r.Latitude, r.Longitude = nil, nil

	if lat, err := common.DMSToDecimal(r.LatitudeCode); err == nil {
		r.Latitude = &lat
	} else {
		errs = append(errs, "latitude: "+err.Error())
	}
	if lon, err := common.DMSToDecimal(r.LongitudeCode); err == nil {
		r.Longitude = &lon
	} else {
		errs = append(errs, "longitude: "+err.Error())
	}

	if len(errs) > 0 {
		return &CoordinateError{Code: r.Code, Reasons: errs}
	}
	return nil
}

// CoordinateError reports undecodable coordinates of a station.
type CoordinateError struct {
	Code    string
	Reasons []string
}

func (e *CoordinateError) Error() string {
	return "station " + e.Code + ": " + strings.Join(e.Reasons, "; ")
}

// Reference is an in-memory station inventory keyed by station code.
type Reference struct {
	byCode map[string]StationRecord
}

// NewReference indexes records by code. A later duplicate code replaces an
// earlier one.
func NewReference(records []StationRecord) *Reference {
	ref := &Reference{byCode: make(map[string]StationRecord, len(records))}
	for _, r := range records {
		ref.byCode[r.Code] = r
	}
	return ref
}

// Load reads the reference file at path. Rows with malformed coordinates
// are kept with nil coordinates and logged.
func Load(path string) (*Reference, error) {
	records, err := store.ReadCSV(path, Header)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{"component": "stations", "file": path})
	out := make([]StationRecord, 0, len(records))
	for _, rec := range records {
		r := StationRecord{
			Province:      strings.TrimSpace(rec[0]),
			LatitudeCode:  strings.TrimSpace(rec[1]),
			LongitudeCode: strings.TrimSpace(rec[2]),
			Altitude:      parseAltitude(rec[3]),
			Code:          strings.TrimSpace(rec[4]),
			Name:          strings.TrimSpace(rec[5]),
			Synoptic:      strings.TrimSpace(rec[6]),
		}
		if r.Code == "" {
			log.Warnf("row without station code ignored: %q", r.Name)
			continue
		}
		if err := r.Decode(); err != nil {
			log.Warn(err)
		}
		out = append(out, r)
	}

	log.Debugf("loaded %d stations", len(out))
	return NewReference(out), nil
}

// Save writes records to path in the reference layout, sorted by code.
func Save(path string, records []StationRecord) error {
	sorted := make([]StationRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		alt := ""
		if r.Altitude != nil {
			alt = strconv.Itoa(*r.Altitude)
		}
		rows = append(rows, []string{r.Province, r.LatitudeCode, r.LongitudeCode, alt, r.Code, r.Name, r.Synoptic})
	}
	return store.WriteCSV(path, Header, rows)
}

// Lookup implements solar.StationLookup.
func (ref *Reference) Lookup(code string) (solar.Station, bool) {
	r, ok := ref.Record(code)
	if !ok {
		return solar.Station{}, false
	}
	return r.Station(), true
}

// Record returns the full inventory row of a station.
func (ref *Reference) Record(code string) (StationRecord, bool) {
	if ref == nil {
		return StationRecord{}, false
	}
	r, ok := ref.byCode[strings.TrimSpace(code)]
	return r, ok
}

// All returns every station sorted by code.
func (ref *Reference) All() []StationRecord {
	if ref == nil {
		return nil
	}
	out := make([]StationRecord, 0, len(ref.byCode))
	for _, r := range ref.byCode {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of stations.
func (ref *Reference) Len() int {
	if ref == nil {
		return 0
	}
	return len(ref.byCode)
}

func parseAltitude(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := common.ParseDecimal(s)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}
