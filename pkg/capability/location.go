package capability

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/go-drift/permissions/pkg/errors"
)

// LocationPermission names one member of the location capability group.
type LocationPermission int

const (
	// LocationCoarse is approximate location.
	LocationCoarse LocationPermission = iota
	// LocationFine is precise location.
	LocationFine
	// LocationBackground is location access while the app is not visible.
	LocationBackground
)

// locationTier maps a location permission to its capability and the first
// platform version that accepts it in a request.
type locationTier struct {
	capability Capability
	since      string
}

// locationTable is evaluated once per Location call. Older platforms take the
// coarse permission alone; precise location joins from v31 and background
// location from v29.
var locationTable = map[LocationPermission]locationTier{
	LocationCoarse:     {capability: AccessCoarse, since: "v1"},
	LocationFine:       {capability: AccessFine, since: "v31"},
	LocationBackground: {capability: AccessBackground, since: "v29"},
}

// defaultLocationGroup is requested when Location is called without perms.
var defaultLocationGroup = []LocationPermission{LocationCoarse, LocationFine}

// Location builds the location capability set for the given platform version.
// Version is an API level such as "29" or "v31.0". Permissions the platform
// does not yet accept are filtered out; if nothing survives the filter the
// call fails with a configuration error.
func Location(version string, perms ...LocationPermission) (Set, error) {
	const op = "capability.Location"

	v, err := canonicalVersion(version)
	if err != nil {
		return Set{}, errors.Configuration(op, err)
	}
	if len(perms) == 0 {
		perms = defaultLocationGroup
	}

	caps := make([]Capability, 0, len(perms))
	for _, p := range perms {
		tier, ok := locationTable[p]
		if !ok {
			return Set{}, errors.Configuration(op, fmt.Errorf("unknown location permission %d", p))
		}
		if semver.Compare(v, tier.since) >= 0 {
			caps = append(caps, tier.capability)
		}
	}
	return newSet(op, caps)
}

// canonicalVersion turns a platform version into a comparable semver string.
func canonicalVersion(version string) (string, error) {
	v := strings.TrimSpace(version)
	if v == "" {
		return "", fmt.Errorf("platform version is required")
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid platform version %q", version)
	}
	return semver.Canonical(v), nil
}
