package apify

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the Apify API host
	DefaultBaseURL = "https://api.apify.com"

	// DefaultActor is the Instagram scraper actor, in the path form Apify expects
	DefaultActor = "apify~instagram-scraper"

	// RunSyncEndpoint runs an actor and returns its dataset items in one call
	RunSyncEndpoint = "/v2/acts/%s/run-sync-get-dataset-items"

	// InstagramBaseURL is the public Instagram web host
	InstagramBaseURL = "https://www.instagram.com"

	// MaxUsernameLength is Instagram's limit on username length
	MaxUsernameLength = 30
)

// RunSyncURL builds the run-sync URL for actor, carrying token as a query parameter
func RunSyncURL(baseURL, actor, token string) string {
	params := url.Values{}
	params.Set("token", token)

	return fmt.Sprintf("%s"+RunSyncEndpoint+"?%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(actor), params.Encode())
}

// ProfileURL constructs the public profile URL for a user
func ProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", InstagramBaseURL, username)
}

// PostURL constructs the URL for a specific post
func PostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", InstagramBaseURL, shortcode)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > MaxUsernameLength {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername normalizes one line of user input to a bare username.
// Surrounding whitespace and leading '@' characters are removed, and a pasted
// profile URL is reduced to its first path segment.
func SanitizeUsername(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "instagram.com/") || strings.HasPrefix(lower, "www.instagram.com/") {
		if !strings.Contains(lower, "://") {
			s = "https://" + s
		}
		if u, err := url.Parse(s); err == nil && strings.HasSuffix(strings.ToLower(u.Hostname()), "instagram.com") {
			s = strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)[0]
		}
	}

	s = strings.TrimLeft(s, "@")
	return strings.TrimRight(s, "/ ")
}

// ParseUsernames splits newline-separated input into usernames. Blank lines
// are dropped; duplicates are kept in submission order.
func ParseUsernames(text string) []string {
	var usernames []string
	for _, line := range strings.Split(text, "\n") {
		if u := SanitizeUsername(line); u != "" {
			usernames = append(usernames, u)
		}
	}
	return usernames
}
