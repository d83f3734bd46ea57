package aemet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/i474232898/aemet-solar/internal/common"
	"github.com/i474232898/aemet-solar/internal/stations"
)

const inventoryPath = "/api/valores/climatologicos/inventarioestaciones/todasestaciones/"

type inventoryRecord struct {
	Province  string `json:"provincia"`
	Latitude  string `json:"latitud"`
	Longitude string `json:"longitud"`
	Altitude  text   `json:"altitud"`
	Code      string `json:"indicativo"`
	Name      string `json:"nombre"`
	Synoptic  string `json:"indsinop"`
}

// FetchStations downloads the inventory of all climatological stations.
// Coordinates are decoded when possible; a station with undecodable
// coordinates is still returned.
func (c *Client) FetchStations(ctx context.Context) ([]stations.StationRecord, error) {
	body, err := c.fetch(ctx, "inventory", inventoryPath)
	if err != nil {
		return nil, err
	}

	var records []inventoryRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decode inventory: %v", ErrPayload, err)
	}

	log := c.log.WithField("endpoint", "inventory")
	out := make([]stations.StationRecord, 0, len(records))
	for _, r := range records {
		rec := stations.StationRecord{
			Code:          strings.TrimSpace(r.Code),
			Province:      strings.TrimSpace(r.Province),
			Name:          strings.TrimSpace(r.Name),
			LatitudeCode:  strings.TrimSpace(r.Latitude),
			LongitudeCode: strings.TrimSpace(r.Longitude),
			Synoptic:      strings.TrimSpace(r.Synoptic),
		}
		if alt, err := common.ParseDecimal(string(r.Altitude)); err == nil {
			n := int(alt)
			rec.Altitude = &n
		}
		if rec.Code == "" {
			log.Warnf("inventory entry without code ignored: %q", rec.Name)
			continue
		}
		if err := rec.Decode(); err != nil {
			log.Warn(err)
		}
		out = append(out, rec)
	}
	return out, nil
}
