// internal/domain/activity/region.go
package activity

import "strings"

// UnknownRegion is returned for region codes without a display label.
const UnknownRegion = "Unknown"

// RegionName maps a region code to its display label.
func RegionName(code string) string {
	switch code {
	case "en-gb":
		return "EU"
	case "en-us":
		return "US"
	default:
		return UnknownRegion
	}
}

// SitePath returns the lower-cased display label used in site URLs (eu, us).
func SitePath(code string) string {
	return strings.ToLower(RegionName(code))
}
