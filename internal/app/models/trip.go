package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// DefaultInitialMessage is used when a request carries no opening message.
const DefaultInitialMessage = "Plan my trip to Pakistan"

// TravelPlanRequest is the POST /create_itinerary body. Every field but
// initial_message is required; numeric fields are pointers so an explicit
// zero is told apart from a missing key.
type TravelPlanRequest struct {
	Budget         *float64 `json:"budget" binding:"required,gte=0"`
	Interests      []string `json:"interests" binding:"required"`
	Companions     *int     `json:"companions" binding:"required,gte=0"`
	City           string   `json:"city" binding:"required"`
	Days           *int     `json:"days" binding:"required,gt=0"`
	TravelDate     string   `json:"travel_date" binding:"required"`
	InitialMessage string   `json:"initial_message"`
}

// TripParameters drive the system prompt of one orchestration.
type TripParameters struct {
	Budget     float64
	Interests  []string
	Companions int
	Cities     []string
	Days       int
	TravelDate string
	// Itinerary is only ever filled from the model's final answer.
	Itinerary json.RawMessage
}

// Validate rejects a city field that names no destination once split.
// Field presence and ranges are checked by the binding tags.
func (r TravelPlanRequest) Validate() error {
	if len(r.TripParameters().Cities) == 0 {
		return fmt.Errorf("%w: city must name at least one destination", ErrValidation)
	}
	return nil
}

// TripParameters converts the request body. A comma separated city string
// becomes an ordered list of destinations.
func (r TravelPlanRequest) TripParameters() TripParameters {
	var cities []string
	for _, c := range strings.Split(r.City, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cities = append(cities, c)
		}
	}
	return TripParameters{
		Budget:     lo.FromPtr(r.Budget),
		Interests:  r.Interests,
		Companions: lo.FromPtr(r.Companions),
		Cities:     cities,
		Days:       lo.FromPtr(r.Days),
		TravelDate: r.TravelDate,
	}
}

// Opening returns the caller's initial human message.
func (r TravelPlanRequest) Opening() string {
	if strings.TrimSpace(r.InitialMessage) == "" {
		return DefaultInitialMessage
	}
	return r.InitialMessage
}

// Itinerary is the documented final-answer schema. The model is asked for it
// but it is not enforced.
type Itinerary struct {
	TripDetails       TripDetails     `json:"trip_details"`
	DestinationImages []ReliableImage `json:"destination_images"`
	HotelImages       []ReliableImage `json:"hotel_images"`
	DailyItinerary    []DayPlan       `json:"daily_itinerary"`
	TotalCost         float64         `json:"total_cost"`
	RemainingBudget   float64         `json:"remaining_budget"`
}

type TripDetails struct {
	Destination string   `json:"destination"`
	Duration    int      `json:"duration"`
	TravelDate  string   `json:"travel_date"`
	Companions  int      `json:"companions"`
	Budget      float64  `json:"budget"`
	Interests   []string `json:"interests"`
}

type DayPlan struct {
	Day            int            `json:"day"`
	Date           string         `json:"date"`
	DayTitle       string         `json:"day_title"`
	Description    string         `json:"description"`
	Hotel          DayHotel       `json:"hotel"`
	Transportation Transportation `json:"transportation"`
	Meals          []Meal         `json:"meals"`
	Activities     []Activity     `json:"activities"`
}

type DayHotel struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Rating     float64 `json:"rating"`
	Reviews    int     `json:"reviews"`
	BookingURL string  `json:"booking_url"`
	HotelImage string  `json:"hotel_image"`
}

type Transportation struct {
	Type string  `json:"type"`
	Cost float64 `json:"cost"`
}

type Meal struct {
	Type  string  `json:"type"`
	Venue string  `json:"venue"`
	Cost  float64 `json:"cost"`
}

type Activity struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
}
