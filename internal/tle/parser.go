package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Elements is the subset of decoded element-set fields used for sanity checks.
type Elements struct {
	CatalogNumber int
	Epoch         time.Time
	Inclination   float64 // degrees
	Eccentricity  float64
	MeanMotion    float64 // revolutions per day
}

// Validate decodes a line pair, verifying column layout, checksums, and that the
// orbit is a closed Earth orbit. go-satellite calls log.Fatal on malformed input,
// so nothing reaches it without passing through here.
func Validate(line1, line2 string) (Elements, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	el, err := decode(line1, line2)
	if err != nil {
		return Elements{}, err
	}

	if el.Eccentricity < 0 || el.Eccentricity >= 1 {
		return Elements{}, fmt.Errorf("eccentricity %.7f outside [0, 1)", el.Eccentricity)
	}
	if el.MeanMotion <= 0 || el.MeanMotion > 20 {
		return Elements{}, fmt.Errorf("mean motion %.8f rev/day out of range", el.MeanMotion)
	}
	if el.Inclination < 0 || el.Inclination > 180 {
		return Elements{}, fmt.Errorf("inclination %.4f outside [0, 180]", el.Inclination)
	}
	return el, nil
}

// Parse reads catalog text in 2-line or 3-line (named) format and returns one record
// per valid element set, keyed by catalog number. Malformed sets are skipped with a
// warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var records []Record
	for i := 0; i+1 < len(lines); {
		name := ""
		if !strings.HasPrefix(lines[i], "1 ") {
			name = strings.TrimSpace(lines[i])
			i++
		}
		if i+1 >= len(lines) {
			break
		}
		line1, line2 := lines[i], lines[i+1]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			// Resynchronise on the next line.
			if name == "" {
				i++
			}
			continue
		}
		i += 2

		el, err := Validate(line1, line2)
		if err != nil {
			logger.Warn("skipping invalid TLE entry", "name", name, "error", err)
			continue
		}

		records = append(records, Record{
			Key:   strconv.Itoa(el.CatalogNumber),
			Name:  name,
			Line1: strings.TrimSpace(line1),
			Line2: strings.TrimSpace(line2),
			Epoch: el.Epoch,
		})
	}

	return records, nil
}
