package itinerary

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/app/observability/metrics"
)

// Runner drives one orchestration to completion.
type Runner interface {
	Run(ctx context.Context, params models.TripParameters, opening string, emit func(Step) error) (Step, error)
}

// Handler serves the itinerary endpoints.
type Handler struct {
	runner Runner
	logger *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(runner Runner, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// CreateItinerary runs the whole exchange and returns its final step.
func (h *Handler) CreateItinerary(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	step, err := h.runner.Run(c.Request.Context(), req.TripParameters(), req.Opening(), nil)
	if err != nil {
		h.record(c, "error")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detail(err)})
		return
	}

	h.logResult(step)
	h.record(c, "ok")
	c.JSON(http.StatusOK, step)
}

// CreateItineraryStream sends every step as a Server-Sent Event.
func (h *Handler) CreateItineraryStream(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	emit := func(step Step) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		c.SSEvent("step", step)
		c.Writer.Flush()
		return nil
	}

	step, err := h.runner.Run(c.Request.Context(), req.TripParameters(), req.Opening(), emit)
	if err != nil {
		h.record(c, "error")
		c.SSEvent("error", gin.H{"detail": detail(err)})
		c.Writer.Flush()
		return
	}

	h.logResult(step)
	h.record(c, "ok")
	c.SSEvent("done", step)
	c.Writer.Flush()
}

func (h *Handler) bind(c *gin.Context) (models.TravelPlanRequest, bool) {
	var req models.TravelPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid itinerary request body", zap.Error(err))
		h.record(c, "invalid")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fmt.Sprintf("%s: %s", models.ErrValidation, err)})
		return req, false
	}
	if err := req.Validate(); err != nil {
		h.logger.Warn("Invalid itinerary request", zap.Error(err))
		h.record(c, "invalid")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return req, false
	}
	h.logger.Info("Received itinerary request",
		zap.String("city", req.City),
		zap.Int("days", lo.FromPtr(req.Days)),
		zap.Int("companions", lo.FromPtr(req.Companions)),
		zap.String("travel_date", req.TravelDate))
	return req, true
}

func (h *Handler) logResult(step Step) {
	it, err := step.DecodeItinerary()
	if err != nil {
		h.logger.Warn("Final answer is not a structured itinerary", zap.String("conversation_id", step.ConversationID))
		return
	}
	h.logger.Info("Generated itinerary",
		zap.String("conversation_id", step.ConversationID),
		zap.Int("days", len(it.DailyItinerary)),
		zap.Float64("total_cost", it.TotalCost),
		zap.Float64("remaining_budget", it.RemainingBudget))
}

func (h *Handler) record(c *gin.Context, status string) {
	metrics.Get().ItineraryRequestsTotal.Add(c.Request.Context(), 1,
		metric.WithAttributes(attribute.String("status", status)))
}

func detail(err error) string {
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "request cancelled: " + msg
	}
	return "Error generating itinerary: " + msg
}
