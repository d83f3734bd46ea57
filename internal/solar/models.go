package solar

import (
	"time"
)

// DateLayout is the day-granularity layout used in every dataset.
const DateLayout = "2006-01-02"

// Hour range covered by the real-time radiation report.
const (
	FirstHour    = 5
	LastHour     = 20
	HoursPerDay  = LastHour - FirstHour + 1
	channelCount = 3
)

// Channel identifies one of the radiation channels of the real-time report.
type Channel string

const (
	ChannelGlobal  Channel = "GL"
	ChannelDiffuse Channel = "DF"
	ChannelDirect  Channel = "DT"
)

// Channels lists the radiation channels in report order.
var Channels = [channelCount]Channel{ChannelGlobal, ChannelDiffuse, ChannelDirect}

// Station holds the reference metadata used to enrich observations.
type Station struct {
	Code      string   `json:"code"`
	Province  string   `json:"province"`
	Name      string   `json:"name"`
	Altitude  *int     `json:"altitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// RawObservation is one per-station, per-day record as published by the
// daily climatological endpoint. Insolation is nil when the record does
// not carry the field at all; an explicit null is an empty string.
type RawObservation struct {
	StationCode string
	Province    string
	Name        string
	Altitude    string
	Date        string
	Insolation  *string

	// Malformed is the decode error of a record that could not be read.
	// Only StationCode and Date are filled, when recoverable.
	Malformed string
}

// ObservationRow is a normalized daily insolation observation.
type ObservationRow struct {
	StationCode string
	Province    string
	Name        string
	Altitude    *int
	Date        time.Time // midnight UTC
	Insolation  *float64  // hours of sunshine
	Latitude    *float64
	Longitude   *float64
}

// DayKey returns the calendar date of the row in DateLayout.
func (r ObservationRow) DayKey() string {
	return r.Date.Format(DateLayout)
}

// HourlyReading holds the three radiation channels for one station hour.
type HourlyReading struct {
	Station string
	Date    time.Time // midnight UTC
	Hour    int
	Global  *float64
	Diffuse *float64
	Direct  *float64
}

// Value returns the reading for the given channel.
func (h HourlyReading) Value(c Channel) *float64 {
	switch c {
	case ChannelGlobal:
		return h.Global
	case ChannelDiffuse:
		return h.Diffuse
	case ChannelDirect:
		return h.Direct
	}
	return nil
}

// StationRadiation is one successfully parsed station line of a report.
type StationRadiation struct {
	Name     string
	Readings []HourlyReading
}

// SkippedRecord describes an input unit that was dropped and why.
type SkippedRecord struct {
	Station string
	Reason  string
}

// RadiationReport is the parsed real-time radiation snapshot.
type RadiationReport struct {
	Date     time.Time
	Stations []StationRadiation
	Skipped  []SkippedRecord
}

// ParseDate parses a YYYY-MM-DD date (an ISO timestamp is accepted and
// truncated to its day).
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
