// Package link defines the link model: a titled URL owned by exactly one
// user. Visibility is inherited from the owner's profile.
package link

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// CategoryOther is the fallback category assigned when a request omits one.
const CategoryOther = "Other"

var schemePrefixPattern = regexp.MustCompile(`^https?://(www\.)?`)

// Link is a single shared hyperlink. Owner holds the owning user's
// username; ownership does not change after creation.
type Link struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Category    string     `json:"category"`
	ClickCount  int64      `json:"clickCount"`
	LastClicked *time.Time `json:"lastClicked,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DisplayDomain extracts the host part of the link's URL for display,
// e.g. "github.com" from "https://github.com/some/repo".
func (l *Link) DisplayDomain() string {
	parsed, err := url.Parse(l.URL)
	if err == nil && parsed.Host != "" {
		return strings.TrimPrefix(parsed.Hostname(), "www.")
	}

	cleaned := schemePrefixPattern.ReplaceAllString(l.URL, "")
	if slashIndex := strings.Index(cleaned, "/"); slashIndex > 0 {
		return cleaned[:slashIndex]
	}
	if cleaned != "" {
		return cleaned
	}

	return "Unknown"
}

// FaviconURL returns the favicon location for the link's site,
// falling back to the Google favicon service when the URL does not parse.
func (l *Link) FaviconURL() string {
	parsed, err := url.Parse(l.URL)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return parsed.Scheme + "://" + parsed.Host + "/favicon.ico"
	}

	return "https://www.google.com/s2/favicons?domain=" + l.DisplayDomain()
}

// MarshalJSON extends the plain field set with the derived displayDomain
// and faviconUrl attributes the frontend renders.
func (l *Link) MarshalJSON() ([]byte, error) {
	type alias Link

	return json.Marshal(struct {
		*alias
		DisplayDomain string `json:"displayDomain"`
		FaviconURL    string `json:"faviconUrl"`
	}{
		alias:         (*alias)(l),
		DisplayDomain: l.DisplayDomain(),
		FaviconURL:    l.FaviconURL(),
	})
}
