package aemet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/i474232898/aemet-solar/internal/solar"
)

const dailyPathFormat = "/api/valores/climatologicos/diarios/datos/fechaini/%sT00:00:00UTC/fechafin/%sT00:00:00UTC/todasestaciones"

// text accepts a JSON string or number. AEMET publishes most numeric
// fields as strings with a decimal comma, but not consistently.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

// presentText is a text field that remembers whether the key was present
// in the record, so an explicit null can be told apart from a missing key.
type presentText struct {
	set   bool
	value text
}

func (p *presentText) UnmarshalJSON(b []byte) error {
	if err := p.value.UnmarshalJSON(b); err != nil {
		return err
	}
	p.set = true
	return nil
}

// dailyRecord mirrors one element of the daily climatological payload.
// Only the fields used by the pipeline are decoded.
type dailyRecord struct {
	Date     string `json:"fecha"`
	Code     string `json:"indicativo"`
	Name     string `json:"nombre"`
	Province string `json:"provincia"`
	Altitude text        `json:"altitud"`
	Sun      presentText `json:"sol"`
}

func (r dailyRecord) toRaw() solar.RawObservation {
	raw := solar.RawObservation{
		StationCode: r.Code,
		Province:    r.Province,
		Name:        r.Name,
		Altitude:    string(r.Altitude),
		Date:        r.Date,
	}
	if r.Sun.set {
		s := string(r.Sun.value)
		raw.Insolation = &s
	}
	return raw
}

// FetchDaily implements solar.DailyFetcher for all stations over the
// inclusive range [from, to].
func (c *Client) FetchDaily(ctx context.Context, from, to time.Time) ([]solar.RawObservation, error) {
	path := fmt.Sprintf(dailyPathFormat, from.Format(solar.DateLayout), to.Format(solar.DateLayout))

	body, err := c.fetch(ctx, "daily", path)
	if err != nil {
		return nil, err
	}

	out, err := decodeDaily(body)
	if err != nil {
		return nil, err
	}
	c.log.WithField("endpoint", "daily").Debugf("received %d records for %s..%s", len(out), from.Format(solar.DateLayout), to.Format(solar.DateLayout))
	return out, nil
}

// decodeDaily decodes the payload array element by element. An element that
// does not match dailyRecord is returned with Malformed set instead of
// failing the whole window.
func decodeDaily(body []byte) ([]solar.RawObservation, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return nil, fmt.Errorf("%w: decode daily records: %v", ErrPayload, err)
	}

	out := make([]solar.RawObservation, 0, len(elems))
	for _, elem := range elems {
		var r dailyRecord
		if err := json.Unmarshal(elem, &r); err != nil {
			var id struct {
				Date string `json:"fecha"`
				Code string `json:"indicativo"`
			}
			_ = json.Unmarshal(elem, &id)
			out = append(out, solar.RawObservation{
				StationCode: id.Code,
				Date:        id.Date,
				Malformed:   err.Error(),
			})
			continue
		}
		out = append(out, r.toRaw())
	}
	return out, nil
}

