package apify

// RunInput is the actor input sent with every run
type RunInput struct {
	DirectURLs   []string `json:"directUrls"`
	ResultsLimit int      `json:"resultsLimit"`
}

// Item is one dataset item returned by the Instagram scraper actor.
// Only the fields igpicker reads are declared.
type Item struct {
	ID            string `json:"id,omitempty"`
	Type          string `json:"type,omitempty"`
	ShortCode     string `json:"shortCode,omitempty"`
	URL           string `json:"url,omitempty"`
	DisplayURL    string `json:"displayUrl,omitempty"`
	Caption       string `json:"caption,omitempty"`
	Text          string `json:"text,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	OwnerUsername string `json:"ownerUsername,omitempty"`

	// Set instead of the fields above when the actor could not scrape the profile
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

// IsError reports whether the item is an actor error record
func (i Item) IsError() bool {
	return i.Error != ""
}

// CaptionText returns the post text, whichever field the actor filled
func (i Item) CaptionText() string {
	if i.Caption != "" {
		return i.Caption
	}
	return i.Text
}

// Permalink returns the post URL, falling back to one built from the shortcode
func (i Item) Permalink() string {
	if i.URL != "" {
		return i.URL
	}
	return PostURL(i.ShortCode)
}

// ErrorText returns a human readable description of an error item
func (i Item) ErrorText() string {
	if i.ErrorDescription != "" {
		return i.ErrorDescription
	}
	return i.Error
}

// apiError is the error envelope Apify returns on non-2xx responses
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
