package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/domain/hotels"
	"github.com/FACorreiaa/go-travel-planner/internal/app/domain/images"
	"github.com/FACorreiaa/go-travel-planner/internal/app/domain/itinerary"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/config"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/llm"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/serpapi"
)

type AppHandlers struct {
	Itinerary *itinerary.Handler
}

func Setup(r *gin.Engine, cfg *config.Config, model llm.Model, log *zap.Logger) {
	handlers := setupDependencies(cfg, model, log)
	setupRouter(r, handlers)
}

func setupDependencies(cfg *config.Config, model llm.Model, log *zap.Logger) *AppHandlers {
	searchClient := serpapi.NewClient(serpapi.Config{
		BaseURL:       cfg.SerpAPI.BaseURL,
		APIKey:        cfg.SerpAPI.APIKey,
		Timeout:       cfg.SerpAPI.Timeout,
		RatePerSecond: cfg.SerpAPI.RateRPS,
		CacheTTL:      cfg.SerpAPI.CacheTTL,
	}, log)

	var hotelOpts []hotels.Option
	if cfg.BookingAlternatives {
		hotelOpts = append(hotelOpts, hotels.WithBookingAlternatives())
	}
	hotelService := hotels.NewService(searchClient, log, hotelOpts...)
	imageService := images.NewService(searchClient, log)

	toolbox := itinerary.NewToolbox(hotelService, imageService, log)
	orchestrator := itinerary.NewOrchestrator(
		itinerary.NewAgent(model, toolbox),
		log,
		itinerary.WithMaxRounds(cfg.Orchestrator.MaxRounds),
		itinerary.WithTimeout(cfg.Orchestrator.Timeout),
	)

	return &AppHandlers{
		Itinerary: itinerary.NewHandler(orchestrator, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/create_itinerary", h.Itinerary.CreateItinerary)
	r.POST("/create_itinerary/stream", h.Itinerary.CreateItineraryStream)
}
