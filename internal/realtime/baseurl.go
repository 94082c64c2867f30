package realtime

import "strings"

// BaseURL derives the socket origin from the REST API origin by stripping
// the API path suffix, e.g. https://api.example.com/api/v1 -> https://api.example.com.
func BaseURL(apiOrigin, apiSuffix string) string {
	origin := strings.TrimRight(apiOrigin, "/")
	suffix := strings.TrimRight(apiSuffix, "/")
	if suffix == "" {
		return origin
	}
	return strings.TrimSuffix(origin, suffix)
}
