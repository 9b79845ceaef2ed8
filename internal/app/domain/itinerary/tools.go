package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/record"
)

// Tool names exposed to the model.
const (
	ToolHotelsFinder = "hotels_finder"
	ToolImageFinder  = "image_finder"
)

// HotelFinder is the hotel search capability.
type HotelFinder interface {
	FindHotels(ctx context.Context, q models.HotelQuery) ([]models.NormalizedHotel, error)
}

// ImageFinder is the image search capability.
type ImageFinder interface {
	FindImages(ctx context.Context, q models.ImageQuery) ([]models.ReliableImage, error)
}

// Toolbox dispatches model tool calls to the search services.
type Toolbox struct {
	hotels HotelFinder
	images ImageFinder
	logger *zap.Logger
}

// NewToolbox creates the tool registry.
func NewToolbox(hotels HotelFinder, images ImageFinder, logger *zap.Logger) *Toolbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolbox{hotels: hotels, images: images, logger: logger}
}

// Specs describes the registered tools to the model.
func (t *Toolbox) Specs() []models.ToolSpec {
	return []models.ToolSpec{
		{
			Name:        ToolHotelsFinder,
			Description: "Find hotels using the Google Hotels engine. Returns up to 5 hotels with name, price in PKR, rating, reviews and a booking URL.",
			Parameters: &models.Schema{
				Type: "object",
				Properties: map[string]*models.Schema{
					"q":              {Type: "string", Description: "Location of the hotel"},
					"check_in_date":  {Type: "string", Description: "Check-in date. The format is YYYY-MM-DD. e.g. 2024-06-22"},
					"check_out_date": {Type: "string", Description: "Check-out date. The format is YYYY-MM-DD. e.g. 2024-06-28"},
					"sort_by":        {Type: "string", Description: "Parameter is used for sorting the results. Default is sort by highest rating (8)"},
					"adults":         {Type: "integer", Description: "Number of adults. Default to 1."},
					"children":       {Type: "integer", Description: "Number of children. Default to 0."},
					"rooms":          {Type: "integer", Description: "Number of rooms. Default to 1."},
					"hotel_class":    {Type: "string", Description: "Parameter defines to include only certain hotel class in the results. for example- 2,3,4"},
				},
				Required: []string{"q", "check_in_date", "check_out_date"},
			},
		},
		{
			Name:        ToolImageFinder,
			Description: "Find reliable, directly loadable image URLs using the Google Images engine.",
			Parameters: &models.Schema{
				Type: "object",
				Properties: map[string]*models.Schema{
					"q": {Type: "string", Description: "Search query for the image"},
					"safe": {
						Type:        "string",
						Description: "Safe search setting: active, moderate, or off",
						Enum:        []string{string(models.SafeSearchActive), string(models.SafeSearchModerate), string(models.SafeSearchOff)},
					},
				},
				Required: []string{"q"},
			},
		},
	}
}

// Invoke runs the named tool and returns its result as JSON text.
// ErrUnknownTool and ErrInvalidToolArguments mark mistakes the model can
// correct; any other error is a failed tool invocation.
func (t *Toolbox) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	ctx, span := otel.Tracer("Toolbox").Start(ctx, "Invoke", trace.WithAttributes(
		attribute.String("tool.name", name),
	))
	defer span.End()

	l := t.logger.With(zap.String("method", "Invoke"), zap.String("tool", name))

	var (
		result any
		err    error
	)
	switch name {
	case ToolHotelsFinder:
		var q models.HotelQuery
		if q, err = decodeHotelQuery(args); err == nil {
			result, err = t.hotels.FindHotels(ctx, q)
		}
	case ToolImageFinder:
		var q models.ImageQuery
		if q, err = decodeImageQuery(args); err == nil {
			result, err = t.images.FindImages(ctx, q)
		}
	default:
		err = fmt.Errorf("%w: %q", models.ErrUnknownTool, name)
	}
	if err != nil {
		if errors.Is(err, models.ErrInvalidToolArguments) {
			l.Warn("Could not decode tool arguments", zap.ByteString("arguments", args), zap.Error(err))
		} else {
			l.Debug("Tool invocation failed", zap.Error(err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool invocation failed")
		return "", err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal %s result: %w", name, err)
	}
	l.Debug("Tool invoked", zap.Int("result_bytes", len(out)))
	span.SetStatus(codes.Ok, "tool invoked")
	return string(out), nil
}

// decodeHotelQuery accepts both {"params": {...}} and flat arguments, and
// tolerates numbers where the provider expects strings.
func decodeHotelQuery(raw json.RawMessage) (models.HotelQuery, error) {
	args, err := decodeArgs(raw)
	if err != nil {
		return models.HotelQuery{}, err
	}
	if nested, ok := args.Map("params"); ok {
		args = nested
	}
	return models.HotelQuery{
		Q:            args.String("q"),
		CheckInDate:  args.String("check_in_date"),
		CheckOutDate: args.String("check_out_date"),
		SortBy:       scalarString(args["sort_by"]),
		Adults:       optionalInt(args["adults"]),
		Children:     optionalInt(args["children"]),
		Rooms:        optionalInt(args["rooms"]),
		HotelClass:   scalarString(args["hotel_class"]),
	}, nil
}

func decodeImageQuery(raw json.RawMessage) (models.ImageQuery, error) {
	args, err := decodeArgs(raw)
	if err != nil {
		return models.ImageQuery{}, err
	}
	if nested, ok := args.Map("params"); ok {
		args = nested
	}
	return models.ImageQuery{
		Q:    args.String("q"),
		Safe: models.SafeSearch(strings.ToLower(args.String("safe"))),
	}, nil
}

func decodeArgs(raw json.RawMessage) (record.Record, error) {
	var args record.Record
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToolArguments, err)
	}
	if args == nil {
		args = record.Record{}
	}
	return args, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := scalarString(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	}
	return ""
}

func optionalInt(v any) *int {
	if v == nil {
		return nil
	}
	f, ok := record.ToFloat(v)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}
