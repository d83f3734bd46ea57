package aemet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/aemet-solar/internal/common"
	"github.com/i474232898/aemet-solar/internal/solar"
)

const radiationPath = "/api/red/especial/radiacion"

// reportDateLayout is the dd-mm-yy date on the second line of the report.
const reportDateLayout = "02-01-06"

// Line layout of the radiation report once blank lines are removed.
const (
	reportDateLine     = 1
	reportStationsLine = 3
)

// ErrMalformedReport is returned when the report header cannot be read.
var ErrMalformedReport = errors.New("malformed radiation report")

// FetchRadiation implements solar.RadiationFetcher.
func (c *Client) FetchRadiation(ctx context.Context) (solar.RadiationReport, error) {
	body, err := c.fetch(ctx, "radiation", radiationPath)
	if err != nil {
		return solar.RadiationReport{}, err
	}

	report, err := ParseRadiationReport(string(body))
	if err != nil {
		return solar.RadiationReport{}, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	return report, nil
}

// ParseRadiationReport parses the semicolon-separated real-time radiation
// report. Station lines missing one of the GL, DF or DT markers are listed
// in Skipped; every other station yields one reading per hour 05..20.
func ParseRadiationReport(text string) (solar.RadiationReport, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= reportDateLine {
		return solar.RadiationReport{}, fmt.Errorf("%w: %d non-blank lines", ErrMalformedReport, len(lines))
	}

	raw := strings.TrimSpace(strings.ReplaceAll(lines[reportDateLine], `"`, ""))
	raw = strings.TrimRight(raw, ";")
	date, err := time.ParseInLocation(reportDateLayout, raw, time.UTC)
	if err != nil {
		return solar.RadiationReport{}, fmt.Errorf("%w: report date %q: %v", ErrMalformedReport, raw, err)
	}

	report := solar.RadiationReport{Date: date}
	if len(lines) <= reportStationsLine {
		return report, nil
	}

	for _, line := range lines[reportStationsLine:] {
		st, skip := parseStationLine(line, date)
		if skip != nil {
			report.Skipped = append(report.Skipped, *skip)
			continue
		}
		report.Stations = append(report.Stations, st)
	}
	return report, nil
}

func parseStationLine(line string, date time.Time) (solar.StationRadiation, *solar.SkippedRecord) {
	cells := strings.Split(line, ";")
	for i, c := range cells {
		cells[i] = strings.Trim(strings.TrimSpace(c), `"`)
	}

	name := cells[0]
	if name == "" {
		return solar.StationRadiation{}, &solar.SkippedRecord{Station: line, Reason: "missing station name"}
	}

	markers := make(map[solar.Channel]int, len(solar.Channels))
	for i, c := range cells {
		ch := solar.Channel(c)
		switch ch {
		case solar.ChannelGlobal, solar.ChannelDiffuse, solar.ChannelDirect:
			if _, seen := markers[ch]; !seen {
				markers[ch] = i
			}
		}
	}
	if len(markers) < len(solar.Channels) {
		var missing []string
		for _, ch := range solar.Channels {
			if _, ok := markers[ch]; !ok {
				missing = append(missing, string(ch))
			}
		}
		return solar.StationRadiation{}, &solar.SkippedRecord{
			Station: name,
			Reason:  "incomplete data: missing " + strings.Join(missing, ", "),
		}
	}

	global := hourBlock(cells, markers[solar.ChannelGlobal])
	diffuse := hourBlock(cells, markers[solar.ChannelDiffuse])
	direct := hourBlock(cells, markers[solar.ChannelDirect])

	readings := make([]solar.HourlyReading, solar.HoursPerDay)
	for i := range readings {
		readings[i] = solar.HourlyReading{
			Station: name,
			Date:    date,
			Hour:    solar.FirstHour + i,
			Global:  global[i],
			Diffuse: diffuse[i],
			Direct:  direct[i],
		}
	}
	return solar.StationRadiation{Name: name, Readings: readings}, nil
}

// hourBlock reads the HoursPerDay cells following the marker at pos. Cells
// past the end of the line, blank or not numeric are nil.
func hourBlock(cells []string, pos int) []*float64 {
	out := make([]*float64, solar.HoursPerDay)
	for i := range out {
		idx := pos + 1 + i
		if idx >= len(cells) || cells[idx] == "" {
			continue
		}
		if v, err := common.ParseDecimal(cells[idx]); err == nil {
			out[i] = &v
		}
	}
	return out
}
