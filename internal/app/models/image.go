package models

// SafeSearch is the provider safe-search mode.
type SafeSearch string

const (
	SafeSearchActive   SafeSearch = "active"
	SafeSearchModerate SafeSearch = "moderate"
	SafeSearchOff      SafeSearch = "off"
)

// Valid reports whether s is one of the provider's modes.
func (s SafeSearch) Valid() bool {
	switch s {
	case SafeSearchActive, SafeSearchModerate, SafeSearchOff:
		return true
	}
	return false
}

// ImageQuery is the image_finder tool input.
type ImageQuery struct {
	Q    string     `json:"q"`
	Safe SafeSearch `json:"safe,omitempty"`
}

// ReliableImage is an image URL that survived filtering.
type ReliableImage struct {
	URL string `json:"url"`
}
