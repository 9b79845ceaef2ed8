package models

// HotelQuery is the hotels_finder tool input.
type HotelQuery struct {
	Q            string `json:"q"`
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
	SortBy       string `json:"sort_by,omitempty"`
	Adults       *int   `json:"adults,omitempty"`
	Children     *int   `json:"children,omitempty"`
	Rooms        *int   `json:"rooms,omitempty"`
	HotelClass   string `json:"hotel_class,omitempty"`
}

// Default occupancy and ordering for HotelQuery.
const (
	DefaultAdults   = 1
	DefaultChildren = 0
	DefaultRooms    = 1
	// DefaultHotelSort asks the provider for highest rating first.
	DefaultHotelSort = "8"
)

// AdultCount returns the adult count or its default.
func (q HotelQuery) AdultCount() int { return intOr(q.Adults, DefaultAdults) }

// ChildCount returns the child count or its default.
func (q HotelQuery) ChildCount() int { return intOr(q.Children, DefaultChildren) }

// RoomCount returns the room count or its default.
func (q HotelQuery) RoomCount() int { return intOr(q.Rooms, DefaultRooms) }

// Sort returns the sort key or its default.
func (q HotelQuery) Sort() string {
	if q.SortBy == "" {
		return DefaultHotelSort
	}
	return q.SortBy
}

func intOr(v *int, def int) int {
	if v == nil || *v < 0 {
		return def
	}
	return *v
}

// NormalizedHotel is the canonical hotel shape handed to the model.
type NormalizedHotel struct {
	Name                string            `json:"name"`
	Price               float64           `json:"price"`
	Rating              float64           `json:"rating"`
	Reviews             int               `json:"reviews"`
	BookingURL          string            `json:"booking_url,omitempty"`
	BookingAlternatives map[string]string `json:"booking_alternatives,omitempty"`
	Location            string            `json:"-"`
}

// UnknownHotelName stands in for records without a name.
const UnknownHotelName = "Unknown Hotel"
