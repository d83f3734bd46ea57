package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDMSToDecimal(t *testing.T) {
	north, err := DMSToDecimal("410842N")
	require.NoError(t, err)
	assert.InDelta(t, 41.145, north, 1e-9)

	south, err := DMSToDecimal("410842S")
	require.NoError(t, err)
	assert.InDelta(t, -north, south, 1e-12)

	west, err := DMSToDecimal("034300W")
	require.NoError(t, err)
	assert.InDelta(t, -3.716666666, west, 1e-6)

	east, err := DMSToDecimal("023000E")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, east, 1e-12)
}

func TestDMSToDecimalRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"41084N",
		"4108420N",
		"41O842N",
		"410842X",
		"416042N",
		"410860N",
	}
	for _, code := range cases {
		_, err := DMSToDecimal(code)
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("DMSToDecimal(%q): expected ErrInvalidCoordinate, got %v", code, err)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal("8,5")
	require.NoError(t, err)
	assert.Equal(t, 8.5, v)

	v, err = ParseDecimal(` "12.25" `)
	require.NoError(t, err)
	assert.Equal(t, 12.25, v)

	_, err = ParseDecimal("Ip")
	assert.Error(t, err)
}

func TestStationFileNames(t *testing.T) {
	assert.Equal(t, "Madrid_Ciudad_Universitaria", NormalizeStationName("Madrid Ciudad Universitaria"))
	assert.Equal(t, "Almería_Aeropuerto", NormalizeStationName("Almería Aeropuerto"))
	assert.Equal(t, "Izaña_(Tenerife)", NormalizeStationName("Izaña (Tenerife)*"))
	assert.Equal(t, "3195_MADRID-RETIRO_2024", SafeFileName("3195_MADRID/RETIRO_2024"))
	assert.Equal(t, "A_CORUÑA", SafeFileName("A CORUÑA"))
	assert.True(t, HasAny("text/plain;charset=ISO-8859-15", "iso-8859"))
}
