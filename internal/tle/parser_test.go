package tle

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057"

	hstLine1 = "1 20580U 90037B   25045.50000000  .00001000  00000+0  50000-4 0  9994"
	hstLine2 = "2 20580  28.4700 100.0000 0002500  90.0000 270.0000 15.14000000 50000"
)

func TestValidate(t *testing.T) {
	el, err := Validate(issLine1, issLine2)
	require.NoError(t, err)

	assert.Equal(t, 25544, el.CatalogNumber)
	assert.InDelta(t, 51.6412, el.Inclination, 1e-9)
	assert.InDelta(t, 0.0003457, el.Eccentricity, 1e-12)
	assert.InDelta(t, 15.49874301, el.MeanMotion, 1e-8)

	// Day 45.18032407 of 2025 is 14 Feb, 04:19:40 UTC.
	wantEpoch := time.Date(2025, 2, 14, 4, 19, 40, 0, time.UTC)
	assert.WithinDuration(t, wantEpoch, el.Epoch, time.Second)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name         string
		line1, line2 string
	}{
		{"bad checksum line 1", issLine1[:68] + "0", issLine2},
		{"bad checksum line 2", issLine1, issLine2[:68] + "0"},
		{"truncated", issLine1[:40], issLine2},
		{"swapped lines", issLine2, issLine1},
		{"empty", "", ""},
		{"garbage", strings.Repeat("x", 69), strings.Repeat("y", 69)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.line1, tt.line2)
			assert.Error(t, err)
		})
	}
}

func TestParseThreeLine(t *testing.T) {
	input := issName + "\n" + issLine1 + "\n" + issLine2 + "\n" +
		"HST\n" + hstLine1 + "\n" + hstLine2 + "\n"

	records, err := Parse(strings.NewReader(input), testLogger)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "25544", records[0].Key)
	assert.Equal(t, issName, records[0].Name)
	assert.Equal(t, issLine1, records[0].Line1)
	assert.Equal(t, issLine2, records[0].Line2)
	assert.False(t, records[0].Epoch.IsZero())

	assert.Equal(t, "20580", records[1].Key)
	assert.Equal(t, "HST", records[1].Name)
}

func TestParseTwoLineAndCRLF(t *testing.T) {
	input := issLine1 + "\r\n" + issLine2 + "\r\n\r\n"

	records, err := Parse(strings.NewReader(input), testLogger)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "25544", records[0].Key)
	assert.Empty(t, records[0].Name)
}

func TestParseSkipsMalformed(t *testing.T) {
	input := strings.Join([]string{
		"BROKEN",
		issLine1[:68] + "0", // bad checksum
		issLine2,
		"ORPHAN NAME",
		"HST",
		hstLine1,
		hstLine2,
	}, "\n")

	records, err := Parse(strings.NewReader(input), testLogger)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "20580", records[0].Key)
	assert.Equal(t, "HST", records[0].Name)
}

func TestParseEmpty(t *testing.T) {
	records, err := Parse(strings.NewReader(""), testLogger)
	require.NoError(t, err)
	assert.Empty(t, records)
}
