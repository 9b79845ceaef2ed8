package images

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/record"
)

const (
	// rawCandidates is how many results are requested per provider call.
	rawCandidates = "20"
	// minReliable triggers broadened searches when not reached.
	minReliable = 5
	// broadenedTarget stops broadened searches once reached.
	broadenedTarget = 8
)

// broadenings are appended to the original query, in order.
var broadenings = []string{"wallpaper", "landscape photos", "tourism photos"}

// Searcher runs one provider query and returns the decoded document.
type Searcher interface {
	Search(ctx context.Context, params map[string]string) (record.Record, error)
}

// Service is the image_finder tool.
type Service struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewService creates the image search tool.
func NewService(searcher Searcher, logger *zap.Logger) *Service {
	return &Service{searcher: searcher, logger: logger}
}

// FindImages searches the provider's image engine and returns reliable
// image URLs. When fewer than five survive filtering up to three broadened
// queries are tried until eight are collected.
func (s *Service) FindImages(ctx context.Context, q models.ImageQuery) ([]models.ReliableImage, error) {
	if q.Safe == "" {
		q.Safe = models.SafeSearchActive
	}

	ctx, span := otel.Tracer("ImagesService").Start(ctx, "FindImages", trace.WithAttributes(
		attribute.String("images.q", q.Q),
		attribute.String("images.safe", string(q.Safe)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "FindImages"), zap.String("q", q.Q))

	if q.Q == "" {
		err := fmt.Errorf("%w: q is required", models.ErrInvalidToolArguments)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid image query")
		return nil, err
	}
	if !q.Safe.Valid() {
		err := fmt.Errorf("%w: safe must be one of active, moderate, off", models.ErrInvalidToolArguments)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid image query")
		return nil, err
	}

	reliable, err := s.search(ctx, q.Q, q.Safe, DefaultMaxImages)
	if err != nil {
		l.Error("Image search failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Image search failed")
		return nil, err
	}

	if len(reliable) < minReliable {
		l.Info("Too few reliable images, trying broader search", zap.Int("found", len(reliable)))

		seen := make(map[string]struct{}, len(reliable))
		for _, img := range reliable {
			seen[img.URL] = struct{}{}
		}

		for _, suffix := range broadenings {
			if len(reliable) >= broadenedTarget {
				break
			}
			extra, err := s.search(ctx, q.Q+" "+suffix, q.Safe, DefaultMaxImages-len(reliable))
			if err != nil {
				l.Error("Broadened image search failed", zap.String("suffix", suffix), zap.Error(err))
				span.RecordError(err)
				span.SetStatus(codes.Error, "Image search failed")
				return nil, err
			}
			for _, img := range extra {
				if _, dup := seen[img.URL]; dup {
					continue
				}
				seen[img.URL] = struct{}{}
				reliable = append(reliable, img)
			}
		}
	}

	l.Info("Found reliable images", zap.Int("images", len(reliable)))
	span.SetAttributes(attribute.Int("images.count", len(reliable)))
	span.SetStatus(codes.Ok, "Images found")
	return reliable, nil
}

func (s *Service) search(ctx context.Context, query string, safe models.SafeSearch, limit int) ([]models.ReliableImage, error) {
	doc, err := s.searcher.Search(ctx, map[string]string{
		"engine": "google_images",
		"q":      query,
		"safe":   string(safe),
		"hl":     "en",
		"gl":     "pk",
		"tbm":    "isch",
		"num":    rawCandidates,
	})
	if err != nil {
		return nil, fmt.Errorf("image search for %q: %w", query, err)
	}
	return FilterReliableImages(record.List(doc["images_results"]), limit), nil
}
