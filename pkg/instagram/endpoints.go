package instagram

import (
	"fmt"
	"net/url"
	"strings"

	"igcrawl/pkg/models"
)

const (
	// DefaultBaseURL is the legacy v1 API host
	DefaultBaseURL = "https://api.instagram.com"

	// APIVersion prefixes every endpoint path
	APIVersion = "/v1"

	// ErrorTypeNotAllowed is what the API reports for private accounts
	ErrorTypeNotAllowed = "APINotAllowedError"
	// ErrorTypeRateLimited is reported alongside HTTP 429
	ErrorTypeRateLimited = "OAuthRateLimitException"
)

// Endpoint names, used as log fields and metric labels
const (
	EndpointSearch    = "search"
	EndpointProfile   = "profile"
	EndpointMedia     = "media"
	EndpointFollowers = "followers"
	EndpointFollowing = "following"
)

// SearchPath returns the user search path
func SearchPath() string {
	return APIVersion + "/users/search"
}

// ProfilePath returns the path of a user's profile
func ProfilePath(accountID string) string {
	return fmt.Sprintf("%s/users/%s", APIVersion, url.PathEscape(accountID))
}

// RecentMediaPath returns the path of a user's recent media
func RecentMediaPath(accountID string) string {
	return fmt.Sprintf("%s/users/%s/media/recent", APIVersion, url.PathEscape(accountID))
}

// EdgesPath returns the follower or following listing of a user
func EdgesPath(accountID string, dir models.Direction) string {
	suffix := "follows"
	if dir == models.Followers {
		suffix = "followed-by"
	}
	return fmt.Sprintf("%s/users/%s/%s", APIVersion, url.PathEscape(accountID), suffix)
}

// EdgesEndpoint returns the endpoint name for an edge direction
func EdgesEndpoint(dir models.Direction) string {
	if dir == models.Followers {
		return EndpointFollowers
	}
	return EndpointFollowing
}

// BuildURL joins base, path and query into a request URL
func BuildURL(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// IsValidHandle checks a handle against the platform's username rules
func IsValidHandle(handle string) bool {
	if handle == "" || len(handle) > 30 {
		return false
	}

	for _, char := range handle {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeHandle strips a leading @ and trailing slashes or spaces
func SanitizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.TrimRight(handle, "/ ")
}
