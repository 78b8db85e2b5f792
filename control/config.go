package control

import "strings"

// aliasTable maps a lowercased configuration option alias to the
// canonical group key tor actually expects on the wire. Hidden-service
// options are all members of a single alias group: querying any one of
// them returns every related HiddenService* option in one GETCONF reply.
var aliasTable = map[string]string{
	"hiddenservicedir":             "HiddenServiceOptions",
	"hiddenserviceport":            "HiddenServiceOptions",
	"hiddenserviceversion":         "HiddenServiceOptions",
	"hiddenserviceauthorizeclient": "HiddenServiceOptions",
	"hiddenserviceoptions":         "HiddenServiceOptions",
}

// resolveAlias rewrites a configuration key to its canonical group key
// if it names an alias, and reports whether a rewrite occurred.
func resolveAlias(key string) (canonical string, aliased bool) {
	canonical, aliased = aliasTable[strings.ToLower(key)]
	return canonical, aliased
}

// cacheableGetInfoKeys is the allow-list of GETINFO keys whose values are
// stable for the lifetime of the peer tor process and are therefore safe
// to cache. ip-to-country/* keys are matched by prefix, not membership,
// and are handled separately.
var cacheableGetInfoKeys = map[string]bool{
	"version":                  true,
	"config-file":              true,
	"exit-policy/default":      true,
	"fingerprint":              true,
	"config/names":             true,
	"config/defaults":          true,
	"info/names":               true,
	"events/names":             true,
	"features/names":           true,
	"process/descriptor-limit": true,
}

const ipToCountryPrefix = "ip-to-country/"

// isCacheableGetInfoKey reports whether a (lowercased) GETINFO key's
// value may be cached for the life of the connection.
func isCacheableGetInfoKey(lowerKey string) bool {
	if cacheableGetInfoKeys[lowerKey] {
		return true
	}
	return strings.HasPrefix(lowerKey, ipToCountryPrefix)
}

// isIPToCountryKey reports whether key (in its original casing) is a
// geoip lookup.
func isIPToCountryKey(key string) bool {
	return strings.HasPrefix(strings.ToLower(key), ipToCountryPrefix)
}

// geoIPFailureThreshold is the number of consecutive geoip lookup
// failures, observed while caching is on and no lookup has ever
// succeeded, after which the database is declared unavailable.
const geoIPFailureThreshold = 5

// geoIPNeverFailAgain is the sentinel counter value meaning "a geoip
// lookup has succeeded at least once; stop counting failures."
const geoIPNeverFailAgain = -1
