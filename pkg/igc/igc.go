// Package igc writes flight tracks in the IGC flight recorder format.
package igc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	crlf = "\r\n"

	// DefaultManufacturer is the A record payload.
	DefaultManufacturer = "XXASkyVario"
	unknown             = "Unknown"
)

// ErrInsufficientData is returned when a track has fewer than two fixes.
var ErrInsufficientData = errors.New("igc: at least two track points are required")

// Fix is one recorded track point.
type Fix struct {
	Time         time.Time
	Latitude     float64
	Longitude    float64
	BaroAltitude float64 // m
	GPSAltitude  float64 // m
}

// Header carries the metadata lines. Empty fields are written as "Unknown".
type Header struct {
	Manufacturer string
	Pilot        string
	GliderType   string
	GliderID     string
}

// Encode renders fixes as an IGC file. The date header is taken from the
// first fix.
func Encode(h Header, fixes []Fix) ([]byte, error) {
	if len(fixes) < 2 {
		return nil, ErrInsufficientData
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString(crlf)
	}

	line("A%s", orDefault(h.Manufacturer, DefaultManufacturer))
	line("HFDTE%s", fixes[0].Time.UTC().Format("020106"))
	line("HFPLTPILOT:%s", orDefault(h.Pilot, unknown))
	line("HFGTYGLIDERTYPE:%s", orDefault(h.GliderType, unknown))
	line("HFGIDGLIDERID:%s", orDefault(h.GliderID, unknown))
	line("HFFRSSECURITY:None")
	line("I013638FXA")

	for _, f := range fixes {
		line("B%s%s%sA%05d%05d",
			f.Time.UTC().Format("150405"),
			formatCoord(f.Latitude, 2, 'N', 'S'),
			formatCoord(f.Longitude, 3, 'E', 'W'),
			roundAltitude(f.BaroAltitude),
			roundAltitude(f.GPSAltitude),
		)
	}
	line("GEND")

	return []byte(b.String()), nil
}

// formatCoord writes degrees then minutes with three implied decimals.
func formatCoord(v float64, degWidth int, pos, neg byte) string {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	deg := int(math.Floor(v))
	milliMin := int(math.Round((v - float64(deg)) * 60000))
	if milliMin >= 60000 {
		deg++
		milliMin -= 60000
	}
	return fmt.Sprintf("%0*d%05d%c", degWidth, deg, milliMin, hemi)
}

func roundAltitude(m float64) int {
	return int(math.Floor(m + 0.5))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FileName returns the artifact name for a flight started at start (UTC).
func FileName(start time.Time) string {
	return "flight_" + start.UTC().Format("020106_150405") + ".igc"
}

// WriteFile writes data into dir under FileName(start) and returns the path.
func WriteFile(dir string, start time.Time, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("igc: create dir: %w", err)
	}
	path := filepath.Join(dir, FileName(start))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("igc: write %s: %w", path, err)
	}
	return path, nil
}

// ParseFixes reads the B records of an IGC file. The date comes from the
// HFDTE header; records before it are rejected.
func ParseFixes(r io.Reader) ([]Fix, error) {
	var (
		fixes []Fix
		day   time.Time
	)
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.HasPrefix(text, "HFDTE"):
			d, err := time.Parse("020106", strings.TrimPrefix(text, "HFDTE"))
			if err != nil {
				return nil, fmt.Errorf("igc: line %d: bad date: %w", n, err)
			}
			day = d
		case strings.HasPrefix(text, "B"):
			if day.IsZero() {
				return nil, fmt.Errorf("igc: line %d: B record before date header", n)
			}
			f, err := parseB(day, text)
			if err != nil {
				return nil, fmt.Errorf("igc: line %d: %w", n, err)
			}
			fixes = append(fixes, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return fixes, nil
}

// B HHMMSS DDMMmmmN DDDMMmmmE A PPPPP GGGGG
const bRecordLen = 1 + 6 + 8 + 9 + 1 + 5 + 5

func parseB(day time.Time, s string) (Fix, error) {
	if len(s) < bRecordLen {
		return Fix{}, fmt.Errorf("short B record %q", s)
	}
	clock, err := time.Parse("150405", s[1:7])
	if err != nil {
		return Fix{}, err
	}
	lat, err := parseCoord(s[7:15], 2)
	if err != nil {
		return Fix{}, err
	}
	lon, err := parseCoord(s[15:24], 3)
	if err != nil {
		return Fix{}, err
	}
	baro, err := strconv.Atoi(s[25:30])
	if err != nil {
		return Fix{}, err
	}
	gps, err := strconv.Atoi(s[30:35])
	if err != nil {
		return Fix{}, err
	}
	return Fix{
		Time:         day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute + time.Duration(clock.Second())*time.Second),
		Latitude:     lat,
		Longitude:    lon,
		BaroAltitude: float64(baro),
		GPSAltitude:  float64(gps),
	}, nil
}

func parseCoord(s string, degWidth int) (float64, error) {
	deg, err := strconv.Atoi(s[:degWidth])
	if err != nil {
		return 0, err
	}
	milliMin, err := strconv.Atoi(s[degWidth : degWidth+5])
	if err != nil {
		return 0, err
	}
	v := float64(deg) + float64(milliMin)/60000
	switch s[degWidth+5] {
	case 'S', 'W':
		v = -v
	case 'N', 'E':
	default:
		return 0, fmt.Errorf("bad hemisphere in %q", s)
	}
	return v, nil
}
