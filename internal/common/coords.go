package common

import (
	"errors"
	"fmt"
)

// ErrInvalidCoordinate is returned for codes that are not in DDMMSSH form.
var ErrInvalidCoordinate = errors.New("invalid coordinate code")

// DMSToDecimal converts a sexagesimal code such as "410842N"
// (41° 08' 42" N) into signed decimal degrees. S and W are negative.
func DMSToDecimal(code string) (float64, error) {
	if len(code) != 7 {
		return 0, fmt.Errorf("%w %q: expected 7 characters, got %d", ErrInvalidCoordinate, code, len(code))
	}

	deg, err := twoDigits(code[0:2])
	if err != nil {
		return 0, fmt.Errorf("%w %q: degrees: %v", ErrInvalidCoordinate, code, err)
	}
	mins, err := twoDigits(code[2:4])
	if err != nil {
		return 0, fmt.Errorf("%w %q: minutes: %v", ErrInvalidCoordinate, code, err)
	}
	sec, err := twoDigits(code[4:6])
	if err != nil {
		return 0, fmt.Errorf("%w %q: seconds: %v", ErrInvalidCoordinate, code, err)
	}
	if mins >= 60 || sec >= 60 {
		return 0, fmt.Errorf("%w %q: minutes and seconds must be below 60", ErrInvalidCoordinate, code)
	}

	decimal := float64(deg) + float64(mins)/60 + float64(sec)/3600

	switch code[6] {
	case 'N', 'E':
		return decimal, nil
	case 'S', 'W':
		return -decimal, nil
	default:
		return 0, fmt.Errorf("%w %q: unknown hemisphere %q", ErrInvalidCoordinate, code, code[6])
	}
}

func twoDigits(s string) (int, error) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q", c)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
