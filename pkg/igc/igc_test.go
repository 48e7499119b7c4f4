package igc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func threePointTrack() []Fix {
	return []Fix{
		{Time: start, Latitude: 46.5, Longitude: 7.25, BaroAltitude: 1234.4, GPSAltitude: 1240.6},
		{Time: start.Add(time.Second), Latitude: -33.8688, Longitude: 151.2093, BaroAltitude: 5.5, GPSAltitude: 0},
		{Time: start.Add(2 * time.Second), Latitude: 0.0166667, Longitude: -0.5, BaroAltitude: -12.4, GPSAltitude: 99999},
	}
}

func TestEncode_ThreePoints(t *testing.T) {
	got, err := Encode(Header{}, threePointTrack())
	require.NoError(t, err)

	want := strings.Join([]string{
		"AXXASkyVario",
		"HFDTE010624",
		"HFPLTPILOT:Unknown",
		"HFGTYGLIDERTYPE:Unknown",
		"HFGIDGLIDERID:Unknown",
		"HFFRSSECURITY:None",
		"I013638FXA",
		"B1200004630000N00715000EA0123401241",
		"B1200013352128S15112558EA0000600000",
		"B1200020001000N00030000WA-001299999",
		"GEND",
	}, "\r\n") + "\r\n"

	assert.Equal(t, want, string(got))
}

func TestEncode_Header(t *testing.T) {
	got, err := Encode(Header{Pilot: "J. Doe", GliderType: "Ozone Rush 6", GliderID: "D-1234"}, threePointTrack())
	require.NoError(t, err)

	lines := strings.Split(string(got), "\r\n")
	assert.Equal(t, "HFPLTPILOT:J. Doe", lines[2])
	assert.Equal(t, "HFGTYGLIDERTYPE:Ozone Rush 6", lines[3])
	assert.Equal(t, "HFGIDGLIDERID:D-1234", lines[4])
}

func TestEncode_InsufficientData(t *testing.T) {
	tests := []struct {
		name  string
		fixes []Fix
	}{
		{"empty", nil},
		{"single point", threePointTrack()[:1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(Header{}, tt.fixes)
			assert.ErrorIs(t, err, ErrInsufficientData)
		})
	}
}

func TestFormatCoord(t *testing.T) {
	tests := []struct {
		v        float64
		width    int
		pos, neg byte
		want     string
	}{
		{46.5, 2, 'N', 'S', "4630000N"},
		{-46.5, 2, 'N', 'S', "4630000S"},
		{45.9999999, 2, 'N', 'S', "4600000N"},
		{8.123456, 3, 'E', 'W', "00807407E"},
		{-179.999, 3, 'E', 'W', "17959940W"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCoord(tt.v, tt.width, tt.pos, tt.neg))
		})
	}
}

func TestParseFixes_RoundTrip(t *testing.T) {
	track := threePointTrack()
	data, err := Encode(Header{}, track)
	require.NoError(t, err)

	fixes, err := ParseFixes(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, fixes, len(track))

	for i, f := range fixes {
		assert.True(t, f.Time.Equal(track[i].Time), "time %d", i)
		assert.InDelta(t, track[i].Latitude, f.Latitude, 1.0/60000)
		assert.InDelta(t, track[i].Longitude, f.Longitude, 1.0/60000)
		assert.InDelta(t, track[i].BaroAltitude, f.BaroAltitude, 0.5)
	}
}

func TestParseFixes_RecordBeforeDate(t *testing.T) {
	_, err := ParseFixes(strings.NewReader("B1200004630000N00715000EA0123401241\r\n"))
	assert.Error(t, err)
}

func TestFileNameAndWrite(t *testing.T) {
	local := time.Date(2024, 6, 1, 14, 5, 9, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "flight_010624_120509.igc", FileName(local))

	dir := filepath.Join(t.TempDir(), "flights")
	path, err := WriteFile(dir, local, []byte("GEND\r\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "flight_010624_120509.igc"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GEND\r\n", string(data))
}
