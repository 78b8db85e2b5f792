package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractUnrecognizedFeature(t *testing.T) {
	name, ok := extractUnrecognizedFeature(`Unrecognized feature "FOOBAR"`)
	require.True(t, ok)
	require.Equal(t, "FOOBAR", name)

	_, ok = extractUnrecognizedFeature("some other failure text")
	require.False(t, ok)
}

func TestSessionEnableFeatureUnrecognized(t *testing.T) {
	s, _ := newConnectedSession(t, map[string]string{
		`USEFEATURE NOT_A_FEATURE`: `552 Unrecognized feature "NOT_A_FEATURE"` + "\r\n",
	})

	err := s.EnableFeature("NOT_A_FEATURE")
	require.Error(t, err)
	var ia *InvalidArguments
	require.ErrorAs(t, err, &ia)
	require.Equal(t, []string{"NOT_A_FEATURE"}, ia.Args)
}

func TestSessionEnableFeatureAndIsEnabled(t *testing.T) {
	s, received := newConnectedSession(t, map[string]string{
		"USEFEATURE VERBOSE_NAMES": "250 OK\r\n",
	})

	require.False(t, s.IsFeatureEnabled("VERBOSE_NAMES"))
	require.NoError(t, s.EnableFeature("VERBOSE_NAMES"))
	require.Equal(t, "USEFEATURE VERBOSE_NAMES", <-received)
	require.True(t, s.IsFeatureEnabled("VERBOSE_NAMES"))
}

type fakeVersionComparer struct {
	atLeast bool
}

func (f fakeVersionComparer) AtLeast(version, minVersion string) (bool, error) {
	return f.atLeast, nil
}

func TestSessionIsFeatureEnabledImplicitByVersion(t *testing.T) {
	s, _ := newConnectedSession(t, map[string]string{
		"GETINFO version": "250 version=0.4.7.13\r\n",
	})
	s.versionComparer = fakeVersionComparer{atLeast: true}

	require.False(t, s.IsFeatureEnabled("EXTENDED_EVENTS"))
	_, err := s.GetInfo("version")
	require.NoError(t, err)
	require.True(t, s.IsFeatureEnabled("EXTENDED_EVENTS"))
	require.True(t, s.IsFeatureEnabled("VERBOSE_NAMES"))
	require.False(t, s.IsFeatureEnabled("SOME_OTHER_FEATURE"))
}
