package images

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/record"
)

// DefaultMaxImages is the usual cap for one filtering pass.
const DefaultMaxImages = 10

// candidateFields are tried in order for every image result.
var candidateFields = []string{"original", "link", "thumbnail", "source"}

// preferredDomains host stable direct image links.
var preferredDomains = []string{
	"upload.wikimedia.org",
	"commons.wikimedia.org",
	"unsplash.com",
	"pixabay.com",
	"pexels.com",
	"flickr.com",
	"staticflickr.com",
}

var problematicPatterns = compileAll(
	// photo hosts whose links expire or need a session
	`lh\d+\.googleusercontent\.com/p/`,
	`drive\.google\.com`,
	`photos\.google\.com`,
	// booking sites serving images off their own domains
	`\.trvl-media\.com`,
	`booking\.com.*images`,
	`expedia\.com.*images`,
	// signed or expiring links
	`[?&](token|auth|signature|expires)=`,
	// size-suffixed temporary links
	`lh\d+\.googleusercontent\.com.*=s\d+$`,
	// tracking parameters
	`[?&](utm_|fbclid|gclid)`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// IsProblematicURL reports whether u is empty or matches a known unreliable
// image URL shape.
func IsProblematicURL(u string) bool {
	if u == "" {
		return true
	}
	for _, re := range problematicPatterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

func isPreferredHost(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, d := range preferredDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// FilterReliableImages selects up to maxImages distinct URLs from raw image
// results. The first pass keeps only links on preferred hosts; the second
// pass, run when the first under-fills, accepts any non-problematic link.
// Every result contributes at most one URL and pass-one picks come first.
func FilterReliableImages(raw []record.Record, maxImages int) []models.ReliableImage {
	out := make([]models.ReliableImage, 0, min(max(maxImages, 0), len(raw)))
	if maxImages <= 0 {
		return out
	}

	seen := make(map[string]struct{})
	used := make([]bool, len(raw))

	take := func(i int, accept func(string) bool) {
		for _, field := range candidateFields {
			u, _ := raw[i][field].(string)
			if IsProblematicURL(u) || !accept(u) {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			used[i] = true
			out = append(out, models.ReliableImage{URL: u})
			return
		}
	}

	for i := range raw {
		if len(out) >= maxImages {
			return out
		}
		take(i, isPreferredHost)
	}

	for i := range raw {
		if len(out) >= maxImages {
			break
		}
		if used[i] {
			continue
		}
		take(i, func(string) bool { return true })
	}
	return out
}
