package hotels

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/record"
)

// MaxHotelsPerQuery caps how many provider properties are normalized.
const MaxHotelsPerQuery = 5

// Searcher runs one provider query and returns the decoded document.
type Searcher interface {
	Search(ctx context.Context, params map[string]string) (record.Record, error)
}

// Service is the hotels_finder tool.
type Service struct {
	searcher     Searcher
	logger       *zap.Logger
	alternatives bool
}

// Option customizes a Service.
type Option func(*Service)

// WithBookingAlternatives makes every hotel carry booking.com as its link
// plus agoda, hotels.com and expedia alternatives.
func WithBookingAlternatives() Option {
	return func(s *Service) { s.alternatives = true }
}

// NewService creates the hotel search tool.
func NewService(searcher Searcher, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{searcher: searcher, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindHotels queries the provider's hotels engine and returns up to five
// normalized hotels. Provider failures are returned unchanged in kind.
func (s *Service) FindHotels(ctx context.Context, q models.HotelQuery) ([]models.NormalizedHotel, error) {
	ctx, span := otel.Tracer("HotelsService").Start(ctx, "FindHotels", trace.WithAttributes(
		attribute.String("hotels.q", q.Q),
		attribute.String("hotels.check_in", q.CheckInDate),
		attribute.String("hotels.check_out", q.CheckOutDate),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "FindHotels"), zap.String("q", q.Q))

	if err := validateQuery(q); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid hotel query")
		return nil, err
	}

	doc, err := s.searcher.Search(ctx, searchParams(q))
	if err != nil {
		l.Error("Hotel search failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hotel search failed")
		return nil, fmt.Errorf("hotel search for %q: %w", q.Q, err)
	}

	raw := record.List(doc["properties"])
	if len(raw) > MaxHotelsPerQuery {
		raw = raw[:MaxHotelsPerQuery]
	}

	stay := Stay{CheckIn: q.CheckInDate, CheckOut: q.CheckOutDate}
	hotels := ProcessHotelData(raw, stay)
	if s.alternatives {
		for i := range hotels {
			hotels[i] = EnhanceHotelWithBookingOptions(hotels[i], stay)
		}
	}

	l.Info("Processed hotels with booking URLs", zap.Int("hotels", len(hotels)))
	span.SetAttributes(attribute.Int("hotels.count", len(hotels)))
	span.SetStatus(codes.Ok, "Hotels found")
	return hotels, nil
}

func validateQuery(q models.HotelQuery) error {
	if q.Q == "" {
		return fmt.Errorf("%w: q is required", models.ErrInvalidToolArguments)
	}
	in, err := time.Parse(time.DateOnly, q.CheckInDate)
	if err != nil {
		return fmt.Errorf("%w: check_in_date must be YYYY-MM-DD", models.ErrInvalidToolArguments)
	}
	out, err := time.Parse(time.DateOnly, q.CheckOutDate)
	if err != nil {
		return fmt.Errorf("%w: check_out_date must be YYYY-MM-DD", models.ErrInvalidToolArguments)
	}
	if !out.After(in) {
		return fmt.Errorf("%w: check_out_date must be after check_in_date", models.ErrInvalidToolArguments)
	}
	return nil
}

func searchParams(q models.HotelQuery) map[string]string {
	params := map[string]string{
		"engine":         "google_hotels",
		"hl":             "en",
		"gl":             "pk",
		"currency":       "PKR",
		"q":              q.Q,
		"check_in_date":  q.CheckInDate,
		"check_out_date": q.CheckOutDate,
		"adults":         strconv.Itoa(q.AdultCount()),
		"children":       strconv.Itoa(q.ChildCount()),
		"rooms":          strconv.Itoa(q.RoomCount()),
		"sort_by":        q.Sort(),
	}
	if q.HotelClass != "" {
		params["hotel_class"] = q.HotelClass
	}
	return params
}

// ProcessHotelData maps raw provider records to NormalizedHotel one to one,
// preserving order. Missing or falsy fields coalesce to the next source and
// finally to zero.
func ProcessHotelData(raw []record.Record, stay Stay) []models.NormalizedHotel {
	out := make([]models.NormalizedHotel, 0, len(raw))
	for _, h := range raw {
		out = append(out, normalizeHotel(h, stay))
	}
	return out
}

func normalizeHotel(h record.Record, stay Stay) models.NormalizedHotel {
	name := h.String("name")
	location := h.String("location")

	bookingURL, ok := ExtractBookingURL(h, stay)
	if !ok {
		bookingURL = stay.DirectBookingURL(name, location)
	}

	displayName := name
	if displayName == "" {
		displayName = models.UnknownHotelName
	}

	return models.NormalizedHotel{
		Name:       displayName,
		Price:      nonNegative(h.Number(record.P("rate_per_night", "extracted_lowest"), record.P("price"))),
		Rating:     nonNegative(h.Number(record.P("overall_rating"), record.P("rating"))),
		Reviews:    max(h.Int(record.P("reviews"), record.P("review_count")), 0),
		BookingURL: bookingURL,
		Location:   h.String("location", "address"),
	}
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

// EnhanceHotelWithBookingOptions points the hotel at booking.com and lists
// the other international platforms as alternatives.
func EnhanceHotelWithBookingOptions(h models.NormalizedHotel, stay Stay) models.NormalizedHotel {
	opts := stay.OptionsMap(h.Name, h.Location)
	h.BookingURL = opts["booking_com"]
	h.BookingAlternatives = map[string]string{
		"agoda":      opts["agoda"],
		"hotels_com": opts["hotels_com"],
		"expedia":    opts["expedia"],
	}
	return h
}
