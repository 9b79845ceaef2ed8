package hotels

import (
	"strings"
	"sync"
	"unicode"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/FACorreiaa/go-travel-planner/internal/pkg/record"
)

// urlFields are checked in order wherever a booking link may live.
var urlFields = []string{
	"booking_url",
	"url",
	"link",
	"website",
	"direct_url",
	"hotel_url",
}

// providerMarkers identify the search provider's own API surface.
var providerMarkers = []string{
	"serpapi.com",
	"search.json",
	"property_token=",
	"engine=google_hotels",
}

// bookingDomains are travel sites whose links are accepted as-is.
var bookingDomains = []string{
	"sastaticket.pk",
	"flypakistan.pk",
	"booking.com",
	"expedia.com",
	"hotels.com",
	"agoda.com",
	"priceline.com",
	"kayak.com",
	"trivago.com",
	"hotel.com",
	"google.com",
	"hotelscombined.com",
}

var (
	denyList  = newMatcher(providerMarkers)
	allowList = newMatcher(bookingDomains)
)

// matcher is a case-insensitive multi-substring search.
type matcher struct {
	mu sync.Mutex
	ac ahocorasick.AhoCorasick
}

func newMatcher(patterns []string) *matcher {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	return &matcher{ac: builder.Build(patterns)}
}

func (m *matcher) containsAny(s string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ac.FindAll(s)) > 0
}

// IsValidBookingURL decides whether u can be shown to a traveller as a
// booking link. Provider-internal URLs are always rejected, known booking
// domains are always accepted, and anything else only needs to look like an
// absolute http(s) URL. The last rule is permissive and is not a security
// boundary.
func IsValidBookingURL(u string) bool {
	if u == "" {
		return false
	}
	if denyList.containsAny(u) {
		return false
	}
	if allowList.containsAny(u) {
		return true
	}
	return (strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")) &&
		strings.Contains(u, ".")
}

// ExtractBookingURL picks the first acceptable link from a raw hotel record:
// top-level fields, then the "booking" object, then the first three offers.
// When nothing validates and the hotel has a name a search link is
// synthesized for stay. ok is false when no link could be produced.
func ExtractBookingURL(hotel record.Record, stay Stay) (string, bool) {
	if u, ok := firstValidURL(hotel); ok {
		return u, true
	}

	if booking, ok := hotel.Map("booking"); ok {
		if u, ok := firstValidURL(booking); ok {
			return u, true
		}
	}

	if offers, ok := hotel.Slice("offers"); ok {
		if len(offers) > 3 {
			offers = offers[:3]
		}
		for _, offer := range record.List(offers) {
			if u, ok := firstValidURL(offer); ok {
				return u, true
			}
		}
	}

	if name := hotel.String("name"); name != "" {
		return stay.DirectBookingURL(name, hotel.String("location", "address")), true
	}
	return "", false
}

func firstValidURL(r record.Record) (string, bool) {
	for _, field := range urlFields {
		u, ok := r[field].(string)
		if ok && IsValidBookingURL(u) {
			return u, true
		}
	}
	return "", false
}

// Stay carries the dates embedded in synthesized search links.
type Stay struct {
	CheckIn  string
	CheckOut string
}

// PlaceholderStay is used when no real dates are known. Links built with
// it are non-binding search entry points, not quotes for the trip's dates.
var PlaceholderStay = Stay{CheckIn: "2025-05-31", CheckOut: "2025-06-07"}

func (s Stay) resolved() Stay {
	if s.CheckIn == "" || s.CheckOut == "" {
		return PlaceholderStay
	}
	return s
}

// BookingOption is one platform search link.
type BookingOption struct {
	Key string
	URL string
}

type platform struct {
	key   string
	build func(name, location string, s Stay) string
}

// platforms are ordered regional first.
var platforms = []platform{
	{"sastaticket", func(n, l string, s Stay) string {
		return "https://www.sastaticket.pk/hotels/search?destination=" + joinTerms(n, l) +
			"&checkin=" + s.CheckIn + "&checkout=" + s.CheckOut
	}},
	{"flypakistan", func(n, l string, _ Stay) string {
		return "https://flypakistan.pk/hotels?destination=" + n + "&location=" + l
	}},
	{"booking_com", func(n, l string, s Stay) string {
		return "https://www.booking.com/searchresults.html?ss=" + joinTerms(n, l) +
			"&checkin=" + s.CheckIn + "&checkout=" + s.CheckOut
	}},
	{"agoda", func(n, _ string, s Stay) string {
		return "https://www.agoda.com/search?searchText=" + n +
			"&checkIn=" + s.CheckIn + "&checkOut=" + s.CheckOut
	}},
	{"hotels_com", func(n, l string, s Stay) string {
		return "https://www.hotels.com/search.do?q-destination=" + joinTerms(n, l) +
			"&q-check-in=" + s.CheckIn + "&q-check-out=" + s.CheckOut
	}},
	{"expedia", func(n, l string, s Stay) string {
		return "https://www.expedia.com/Hotel-Search?destination=" + joinTerms(n, l) +
			"&startDate=" + s.CheckIn + "&endDate=" + s.CheckOut
	}},
}

// Options builds every platform link for the hotel, regional platforms first.
func (s Stay) Options(name, location string) []BookingOption {
	s = s.resolved()
	n, l := cleanName(name), cleanLocation(location)
	out := make([]BookingOption, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, BookingOption{Key: p.key, URL: p.build(n, l, s)})
	}
	return out
}

// DirectBookingURL returns the first (regional) platform link.
func (s Stay) DirectBookingURL(name, location string) string {
	return s.Options(name, location)[0].URL
}

// CreateDirectBookingURL synthesizes a booking search link with placeholder dates.
func CreateDirectBookingURL(name, location string) string {
	return PlaceholderStay.DirectBookingURL(name, location)
}

// GetMultipleBookingOptions returns all platform links keyed by platform id.
func GetMultipleBookingOptions(name, location string) map[string]string {
	return PlaceholderStay.OptionsMap(name, location)
}

// OptionsMap is Options keyed by platform id.
func (s Stay) OptionsMap(name, location string) map[string]string {
	opts := s.Options(name, location)
	m := make(map[string]string, len(opts))
	for _, o := range opts {
		m[o.Key] = o.URL
	}
	return m
}

func plusForSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return '+'
	}
	return r
}

func cleanName(name string) string {
	return strings.ReplaceAll(strings.Map(plusForSpace, name), "&", "and")
}

func cleanLocation(location string) string {
	return strings.ReplaceAll(strings.Map(plusForSpace, location), ",", "")
}

// joinTerms joins the non-empty terms with '+', so a missing location never
// leaves a dangling separator in the search text.
func joinTerms(terms ...string) string {
	parts := terms[:0:0]
	for _, t := range terms {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "+")
}
