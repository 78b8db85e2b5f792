package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAlias(t *testing.T) {
	canonical, aliased := resolveAlias("HiddenServicePort")
	require.True(t, aliased)
	require.Equal(t, "HiddenServiceOptions", canonical)

	_, aliased = resolveAlias("SocksPort")
	require.False(t, aliased)
}

func TestIsCacheableGetInfoKey(t *testing.T) {
	require.True(t, isCacheableGetInfoKey("version"))
	require.True(t, isCacheableGetInfoKey("ip-to-country/1.2.3.4"))
	require.False(t, isCacheableGetInfoKey("circuit-status"))
}

func TestIsIPToCountryKey(t *testing.T) {
	require.True(t, isIPToCountryKey("ip-to-country/8.8.8.8"))
	require.False(t, isIPToCountryKey("version"))
}
