package aemet

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/aemet-solar/internal/solar"
)

func quoted(cells ...string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = `"` + c + `"`
	}
	return strings.Join(out, ";")
}

func block(marker string, start int) []string {
	cells := []string{marker}
	for h := 0; h < solar.HoursPerDay; h++ {
		cells = append(cells, strconv.Itoa(start+h))
	}
	return cells
}

func sampleReport() string {
	full := append([]string{"Almería Aeropuerto", "6325O"}, block("GL", 100)...)
	full = append(full, block("DF", 200)...)
	full = append(full, block("DT", 300)...)

	// Short DT block with a blank and a decimal comma.
	short := append([]string{"Izaña", "C430E"}, block("GL", 0)...)
	short = append(short, block("DF", 0)...)
	short = append(short, "DT", "", "1,5", "x")

	incomplete := append([]string{"Badajoz", "4478X"}, block("GL", 0)...)

	return strings.Join([]string{
		`"RADIACION SOLAR GLOBAL, DIFUSA Y DIRECTA (10*kJ/m2)"`,
		`"15-06-24"`,
		"",
		quoted("Estación", "Indicativo", "Tipo", "5", "6", "7"),
		quoted(full...),
		quoted(short...),
		"   ",
		quoted(incomplete...),
	}, "\r\n")
}

func TestParseRadiationReport(t *testing.T) {
	report, err := ParseRadiationReport(sampleReport())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), report.Date)
	require.Len(t, report.Stations, 2)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "Badajoz", report.Skipped[0].Station)
	assert.Contains(t, report.Skipped[0].Reason, "DF")

	almeria := report.Stations[0]
	assert.Equal(t, "Almería Aeropuerto", almeria.Name)
	require.Len(t, almeria.Readings, solar.HoursPerDay)
	first, last := almeria.Readings[0], almeria.Readings[solar.HoursPerDay-1]
	assert.Equal(t, solar.FirstHour, first.Hour)
	assert.Equal(t, solar.LastHour, last.Hour)
	assert.Equal(t, 100.0, *first.Global)
	assert.Equal(t, 200.0, *first.Diffuse)
	assert.Equal(t, 315.0, *last.Direct)

	izana := report.Stations[1]
	require.Len(t, izana.Readings, solar.HoursPerDay)
	assert.Nil(t, izana.Readings[0].Direct)
	assert.InDelta(t, 1.5, *izana.Readings[1].Direct, 1e-9)
	assert.Nil(t, izana.Readings[2].Direct)
	for _, r := range izana.Readings[3:] {
		assert.Nil(t, r.Direct)
		assert.NotNil(t, r.Global)
	}
}

func TestParseRadiationReportHeaderOnly(t *testing.T) {
	report, err := ParseRadiationReport("\"title\"\n\"01-02-25\"\n")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), report.Date)
	assert.Empty(t, report.Stations)
}

func TestParseRadiationReportMalformed(t *testing.T) {
	_, err := ParseRadiationReport("only one line")
	require.ErrorIs(t, err, ErrMalformedReport)

	_, err = ParseRadiationReport("title\nnot a date\n")
	require.ErrorIs(t, err, ErrMalformedReport)
}

func TestFetchRadiation(t *testing.T) {
	f := newFakeAEMET(t, pointerOK, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain;charset=UTF-8")
		_, _ = w.Write([]byte(sampleReport()))
	})

	report, err := f.client(fastRetry(3), 0).FetchRadiation(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Stations, 2)
	assert.Equal(t, "/api/red/especial/radiacion", f.lastMeta.Load().URL.Path)
}
