package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestCacheInfoRoundTrip(t *testing.T) {
	c := newRequestCache()
	_, ok := c.getInfo("version")
	require.False(t, ok)

	c.putInfo("version", "0.4.7.13")
	v, ok := c.getInfo("VERSION")
	require.True(t, ok)
	require.Equal(t, "0.4.7.13", v)
}

func TestRequestCacheConfRoundTrip(t *testing.T) {
	c := newRequestCache()
	val := "9050"
	c.putConf("SocksPort", ConfValues{&val})

	got, ok := c.getConf("socksport")
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "9050", *got[0])

	c.removeConf("SocksPort")
	_, ok = c.getConf("SocksPort")
	require.False(t, ok)
}

func TestRequestCacheClear(t *testing.T) {
	c := newRequestCache()
	c.putInfo("version", "x")
	c.recordGeoIPFailure()
	c.clear()

	_, ok := c.getInfo("version")
	require.False(t, ok)
	require.False(t, c.geoIPUnavailable())
}

func TestGeoIPFailureThresholdAndStickySuccess(t *testing.T) {
	c := newRequestCache()
	for i := 0; i < geoIPFailureThreshold-1; i++ {
		c.recordGeoIPFailure()
		require.False(t, c.geoIPUnavailable())
	}
	c.recordGeoIPFailure()
	require.True(t, c.geoIPUnavailable())

	c.recordGeoIPSuccess()
	require.False(t, c.geoIPUnavailable())

	// Once the sticky sentinel is set, further failures never re-trip
	// the threshold.
	for i := 0; i < geoIPFailureThreshold+5; i++ {
		c.recordGeoIPFailure()
	}
	require.False(t, c.geoIPUnavailable())
}
