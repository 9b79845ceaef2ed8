package itinerary

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
)

const itinerarySchema = `{
    "trip_details": {
        "destination": string,
        "duration": number,
        "travel_date": string,
        "companions": number,
        "budget": number,  # in PKR
        "interests": string[]
    },
    "destination_images": [
        {"url": string}
    ],
    "hotel_images": [
        {"url": string}
    ],
    "daily_itinerary": [
        {
            "day": number,
            "date": string,
            "day_title": string,  # e.g., "Cultural Tour", "Arrival Day", "Adventure Day"
            "description": string,  # Brief description of the day's theme and activities
            "hotel": {
                "name": string,
                "price": number,  # in PKR
                "rating": number,
                "reviews": number,
                "booking_url": string,
                "hotel_image": string  # This should be unique for each hotel
            },
            "transportation": {
                "type": string,
                "cost": number  # in PKR
            },
            "meals": [
                {"type": string, "venue": string, "cost": number}
            ],
            "activities": [
                {"name": string, "description": string, "cost": number}
            ]
        }
    ],
    "total_cost": number,  # in PKR
    "remaining_budget": number  # in PKR
}`

// BuildSystemPrompt renders the instructions that seed every conversation.
func BuildSystemPrompt(p models.TripParameters) string {
	title := cases.Title(language.English)
	cities := make([]string, 0, len(p.Cities))
	for _, c := range p.Cities {
		cities = append(cities, title.String(c))
	}
	destination := strings.Join(cities, ", ")

	var b strings.Builder
	b.WriteString("You are a smart travel assistant. Create a detailed itinerary in JSON format considering:\n")
	fmt.Fprintf(&b, "- Budget: PKR %s\n", strconv.FormatFloat(p.Budget, 'f', -1, 64))
	fmt.Fprintf(&b, "- Travel Interests: %s\n", strings.Join(p.Interests, ", "))
	fmt.Fprintf(&b, "- Companions: %d people\n", p.Companions)
	fmt.Fprintf(&b, "- Destination: %s\n", destination)
	fmt.Fprintf(&b, "- Duration: %d days\n", p.Days)
	fmt.Fprintf(&b, "- Travel Date: %s\n\n", p.TravelDate)

	b.WriteString("IMPORTANT: For each city in the destinations list, you must:\n")
	fmt.Fprintf(&b, "1. Use %s tool to get hotel information for EACH city separately\n", ToolHotelsFinder)
	fmt.Fprintf(&b, "2. Use %s tool to get destination images for EACH city separately\n", ToolImageFinder)
	fmt.Fprintf(&b, "3. Use %s tool to get hotel images for EACH city separately\n\n", ToolImageFinder)

	fmt.Fprintf(&b, "For each city (%s), perform these searches:\n", destination)
	for _, city := range cities {
		fmt.Fprintf(&b, "- %s:\n", city)
		fmt.Fprintf(&b, "  1. Destination images: %s with q=%q\n", ToolImageFinder, city+" Pakistan tourism photos")
		fmt.Fprintf(&b, "  2. Hotel search: %s with q=%q and check-in on the travel date\n", ToolHotelsFinder, city)
		fmt.Fprintf(&b, "  3. Hotel images: %s with q=%q\n", ToolImageFinder, city+" Pakistan hotels interior rooms")
	}
	b.WriteString("\nCRITICAL: Each hotel must have its own unique image. Do NOT reuse the same image URL for different hotels.\n\n")

	b.WriteString("The response should be a valid JSON object with the following structure:\n")
	b.WriteString(itinerarySchema)
	b.WriteString("\n\nInstructions:\n")
	fmt.Fprintf(&b, "1. Use %s to get 8-10 high-quality images of %s and of its hotels.\n", ToolImageFinder, destination)
	b.WriteString("2. Include destination images in the destination_images array\n")
	b.WriteString("3. Include hotel images in the hotel_images array\n")
	b.WriteString("4. Ensure all image URLs are valid and accessible\n\n")
	b.WriteString("For each day:\n")
	b.WriteString("1. Provide a meaningful day_title that describes the theme (e.g., \"Cultural Tour\", \"Adventure Day\")\n")
	b.WriteString("2. Include a brief description explaining the day's focus and highlights\n\n")
	b.WriteString("In the cost summary:\n")
	b.WriteString("1. Calculate the total trip cost in PKR as total_cost\n")
	b.WriteString("2. Show the remaining budget from the original amount in PKR as remaining_budget\n")
	b.WriteString("When all searches are done, reply with the JSON object only.\n")
	return b.String()
}
