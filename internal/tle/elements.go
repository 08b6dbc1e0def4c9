package tle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const lineLength = 69

var errChecksum = errors.New("checksum mismatch")

// decode reads the fixed columns of a line pair. Only the fields needed for
// sanity checks and epoch bookkeeping are extracted; go-satellite parses the rest.
func decode(line1, line2 string) (Elements, error) {
	for i, line := range []string{line1, line2} {
		if len(line) != lineLength {
			return Elements{}, fmt.Errorf("line %d: want %d characters, got %d", i+1, lineLength, len(line))
		}
		if line[0] != byte('1'+i) || line[1] != ' ' {
			return Elements{}, fmt.Errorf("line %d: bad line number %q", i+1, line[:2])
		}
		if err := verifyChecksum(line); err != nil {
			return Elements{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	cat1, err := intField(line1, 2, 7, "catalog number")
	if err != nil {
		return Elements{}, err
	}
	cat2, err := intField(line2, 2, 7, "catalog number")
	if err != nil {
		return Elements{}, err
	}
	if cat1 != cat2 {
		return Elements{}, fmt.Errorf("catalog numbers differ between lines (%d vs %d)", cat1, cat2)
	}

	year, err := intField(line1, 18, 20, "epoch year")
	if err != nil {
		return Elements{}, err
	}
	day, err := floatField(line1, 20, 32, "epoch day")
	if err != nil {
		return Elements{}, err
	}
	if day < 1 || day >= 367 {
		return Elements{}, fmt.Errorf("epoch day %.8f out of range", day)
	}

	incl, err := floatField(line2, 8, 16, "inclination")
	if err != nil {
		return Elements{}, err
	}
	ecc, err := strconv.ParseFloat("0."+strings.TrimSpace(line2[26:33]), 64)
	if err != nil {
		return Elements{}, fmt.Errorf("eccentricity %q: %w", line2[26:33], err)
	}
	mm, err := floatField(line2, 52, 63, "mean motion")
	if err != nil {
		return Elements{}, err
	}

	return Elements{
		CatalogNumber: cat1,
		Epoch:         epochTime(year, day),
		Inclination:   incl,
		Eccentricity:  ecc,
		MeanMotion:    mm,
	}, nil
}

// epochTime converts a two-digit year and fractional day of year to UTC. Years
// below 57 are in the 2000s.
func epochTime(yy int, day float64) time.Time {
	year := 1900 + yy
	if yy < 57 {
		year = 2000 + yy
	}
	whole := math.Floor(day)
	nanos := math.Round((day - whole) * 86400e9)
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, int(whole)-1).
		Add(time.Duration(nanos))
}

// verifyChecksum checks the modulo-10 sum in column 69: digits count their value,
// '-' counts one, everything else zero.
func verifyChecksum(line string) error {
	want := line[lineLength-1]
	if want < '0' || want > '9' {
		return fmt.Errorf("checksum %q is not a digit", want)
	}
	sum := 0
	for i := 0; i < lineLength-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	if sum%10 != int(want-'0') {
		return fmt.Errorf("%w: computed %d, line says %c", errChecksum, sum%10, want)
	}
	return nil
}

func intField(line string, from, to int, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(line[from:to]))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, line[from:to], err)
	}
	return v, nil
}

func floatField(line string, from, to int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(line[from:to]), 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, line[from:to], err)
	}
	return v, nil
}
