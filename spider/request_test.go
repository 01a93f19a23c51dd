package spider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageURL(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		region Region
		date   time.Time
		want   string
	}{
		{North, time.Time{}, "https://www.minhngoc.net.vn/xo-so-mien-bac.html"},
		{Central, time.Time{}, "https://www.minhngoc.net.vn/xo-so-mien-trung.html"},
		{South, time.Time{}, "https://www.minhngoc.net.vn/xo-so-mien-nam.html"},
		{North, date, "https://www.minhngoc.net.vn/xo-so-mien-bac/ngay-05-03-2024.html"},
		{Central, date, "https://www.minhngoc.net.vn/xo-so-mien-trung/ngay-05-03-2024.html"},
		{South, date, "https://www.minhngoc.net.vn/xo-so-mien-nam/ngay-05-03-2024.html"},
	}
	for _, tt := range tests {
		got, err := PageURL(DefaultBaseURL+"/", tt.region, tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := PageURL(DefaultBaseURL, Region("east"), date)
	assert.Error(t, err)
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion(" South ")
	require.NoError(t, err)
	assert.Equal(t, South, r)

	_, err = ParseRegion("mien-nam")
	assert.Error(t, err)
}
