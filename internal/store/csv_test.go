package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/aemet-solar/internal/solar"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func day(s string) time.Time {
	d, err := solar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCSVStoreMissingFileIsEmpty(t *testing.T) {
	s := NewCSVStore()
	dir := t.TempDir()

	rows, err := s.LoadDaily(filepath.Join(dir, "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	readings, err := s.LoadHourly(filepath.Join(dir, "nope_radiacion_completo.csv"))
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestCSVStoreDailyRoundTrip(t *testing.T) {
	s := NewCSVStore()
	path := filepath.Join(t.TempDir(), "nested", "insolation_daily_2024.csv")

	in := []solar.ObservationRow{
		{
			StationCode: "0076", Province: "BARCELONA", Name: "BARCELONA AEROPUERTO",
			Altitude: iptr(4), Date: day("2024-01-01"), Insolation: fptr(8.5),
			Latitude: fptr(41.2925), Longitude: fptr(2.07),
		},
		{
			StationCode: "C447A", Province: "STA. CRUZ DE TENERIFE", Name: "TENERIFE NORTE, AEROPUERTO",
			Date: day("2024-01-02"),
		},
	}
	require.NoError(t, s.SaveDaily(path, in))

	out, err := s.LoadDaily(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Nil(t, out[1].Altitude)
	assert.Nil(t, out[1].Insolation)
	assert.Nil(t, out[1].Latitude)
	assert.Equal(t, "TENERIFE NORTE, AEROPUERTO", out[1].Name)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCSVStoreSaveReplacesFile(t *testing.T) {
	s := NewCSVStore()
	path := filepath.Join(t.TempDir(), "daily.csv")

	first := []solar.ObservationRow{
		{StationCode: "A", Date: day("2024-01-01"), Insolation: fptr(1)},
		{StationCode: "A", Date: day("2024-01-02"), Insolation: fptr(2)},
	}
	require.NoError(t, s.SaveDaily(path, first))
	require.NoError(t, s.SaveDaily(path, first[:1]))

	out, err := s.LoadDaily(path)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestCSVStoreHourlyRoundTrip(t *testing.T) {
	s := NewCSVStore()
	path := filepath.Join(t.TempDir(), "Almeria"+solar.HourlyFileSuffix)

	in := []solar.HourlyReading{
		{Station: "Almeria", Date: day("2024-06-01"), Hour: 5, Global: fptr(0)},
		{Station: "Almeria", Date: day("2024-06-01"), Hour: 12, Global: fptr(92.3), Diffuse: fptr(11), Direct: fptr(310.5)},
	}
	require.NoError(t, s.SaveHourly(path, in))

	out, err := s.LoadHourly(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCSVStoreHourlyRejectsHourOutsideReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Almeria"+solar.HourlyFileSuffix)
	require.NoError(t, os.WriteFile(path, []byte("date,hour,GL,DF,DT\n2024-06-01,12,1,2,3\n2024-06-01,23,1,2,3\n"), 0o600))

	_, err := NewCSVStore().LoadHourly(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hour 23 outside 5..20")
}

func TestCSVStoreRejectsUnexpectedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c,d,e,f,g,h\n1,2,3,4,5,6,7,8\n"), 0o600))

	_, err := NewCSVStore().LoadDaily(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected header")
}

func TestCSVStoreAcceptsLegacyNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	content := "\ufeffstation,province,name,altitude,date,insolation,lat,lon\n" +
		"0076,BARCELONA,BARCELONA AEROPUERTO,4.0,2024-01-01,\"8,5\",41.2925,2.07\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rows, err := NewCSVStore().LoadDaily(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, *rows[0].Altitude)
	assert.InDelta(t, 8.5, *rows[0].Insolation, 1e-9)
}

func TestCSVStoreEmptyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	rows, err := NewCSVStore().LoadDaily(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVStoreScanDailySkipsBadDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insolation_daily_2024.csv")
	content := "station,province,name,altitude,date,insolation,lat,lon\n" +
		"0076,BARCELONA,BARCELONA AEROPUERTO,4,2024-01-01,8.5,,\n" +
		"0076,BARCELONA,BARCELONA AEROPUERTO,4,,7.1,,\n" +
		"0076,BARCELONA,BARCELONA AEROPUERTO,4,2024-13-45,7.1,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := NewCSVStore()
	_, err := s.LoadDaily(path)
	require.Error(t, err)

	rows, skipped, err := s.ScanDaily(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Len(t, skipped, 2)
	assert.Equal(t, "0076", skipped[0].Station)
}
