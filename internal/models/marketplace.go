package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a geocoded location as returned by the backend
type Address struct {
	FormattedAddress string  `json:"formattedAddress"`
	Country          string  `json:"country"`
	State            string  `json:"state,omitempty"`
	City             string  `json:"city,omitempty"`
	PostalCode       string  `json:"postalCode,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// UnmarshalJSON also accepts a bare string, taken as the formatted address.
func (a *Address) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Address{FormattedAddress: s}
		return nil
	}
	type plain Address
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Address(p)
	return nil
}

// Label renders "City, Country", falling back to the formatted address for the first part.
func (a *Address) Label() string {
	if a == nil {
		return "Unknown"
	}
	place := a.City
	if place == "" {
		place = a.FormattedAddress
	}
	if place == "" {
		place = "Unknown"
	}
	if a.Country == "" {
		return place
	}
	return place + ", " + a.Country
}

// Request statuses
const (
	RequestStatusOpen           = "OPEN"
	RequestStatusPendingPayment = "PENDING_PAYMENT"
	RequestStatusPaid           = "PAID"
	RequestStatusAssigned       = "ASSIGNED"
	RequestStatusPickedUp       = "PICKED_UP"
	RequestStatusDelivered      = "DELIVERED"
	RequestStatusReturned       = "RETURNED"
	RequestStatusCancelled      = "CANCELLED"
)

// DeliveryRequest is a sender's delivery request
type DeliveryRequest struct {
	ID               string          `json:"_id"`
	Title            string          `json:"title"`
	PickupAddress    *Address        `json:"pickupAddress,omitempty"`
	DropoffAddress   *Address        `json:"dropoffAddress,omitempty"`
	Reward           float64         `json:"reward"`
	ShortDescription string          `json:"shortDescription,omitempty"`
	Deadline         string          `json:"deadline,omitempty"`
	Status           string          `json:"status"`
	SenderID         json.RawMessage `json:"senderId,omitempty"`
	DriverID         json.RawMessage `json:"driverId,omitempty"`
	SourceRouteID    string          `json:"sourceRouteId,omitempty"`
	RequestSource    string          `json:"requestSource,omitempty"`
	Images           []string        `json:"images,omitempty"`
	PlatformFee      *float64        `json:"platformFee,omitempty"`
	StripeFee        *float64        `json:"stripeFee,omitempty"`
	DriverEarnings   *float64        `json:"driverEarnings,omitempty"`
	PayoutStatus     string          `json:"payoutStatus,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
}

// CreateRequestInput is the body of POST /v1/requests
type CreateRequestInput struct {
	Title            string  `json:"title"`
	Reward           float64 `json:"reward"`
	PickupAddress    string  `json:"pickupAddress"`
	DropoffAddress   string  `json:"dropoffAddress"`
	ShortDescription string  `json:"shortDescription,omitempty"`
	Deadline         string  `json:"deadline,omitempty"`
	DriverRouteID    string  `json:"driverRouteId,omitempty"`
}

// ListRequestsParams filters GET /v1/requests
type ListRequestsParams struct {
	Page   int
	Limit  int
	Status string
	Sort   string
}

// Pagination is the backend's page metadata
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// RequestList is a page of delivery requests
type RequestList struct {
	Requests   []DeliveryRequest `json:"requests"`
	Pagination *Pagination       `json:"pagination,omitempty"`
}

// UnmarshalJSON accepts either a bare array or {requests, pagination}.
func (l *RequestList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.Requests)
	}
	type plain RequestList
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = RequestList(p)
	return nil
}

// RouteLocation is one end of a driver route
type RouteLocation struct {
	City        string       `json:"city"`
	State       string       `json:"state,omitempty"`
	Country     string       `json:"country"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	FullAddress string       `json:"fullAddress,omitempty"`
}

// Coordinates is a lat/lng pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Capacity is what a driver can still carry
type Capacity struct {
	Weight *float64 `json:"weight,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Pieces *int     `json:"pieces,omitempty"`
}

// PriceRange is a driver's asking price
type PriceRange struct {
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	IsNegotiable bool     `json:"isNegotiable,omitempty"`
}

// Restrictions lists what a driver refuses to carry
type Restrictions struct {
	NoLiquids    bool   `json:"noLiquids,omitempty"`
	NoFragile    bool   `json:"noFragile,omitempty"`
	NoPerishable bool   `json:"noPerishable,omitempty"`
	MaxItemSize  string `json:"maxItemSize,omitempty"`
}

// PopulatedDriver is the driver object embedded in a route when the backend populates it
type PopulatedDriver struct {
	ID                       string   `json:"_id"`
	FirstName                string   `json:"firstName,omitempty"`
	LastName                 string   `json:"lastName,omitempty"`
	Email                    string   `json:"email,omitempty"`
	ProfilePicture           string   `json:"profilePicture,omitempty"`
	Rating                   *float64 `json:"rating,omitempty"`
	TotalDeliveries          *int     `json:"totalDeliveries,omitempty"`
	StripeVerificationStatus string   `json:"stripeVerificationStatus,omitempty"`
}

// DriverRef is a route's driverId field, either a bare id or a populated driver.
type DriverRef struct {
	ID     string
	Driver *PopulatedDriver
}

// UnmarshalJSON decodes both shapes of driverId.
func (d *DriverRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*d = DriverRef{}
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &d.ID)
	default:
		var p PopulatedDriver
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode driverId: %w", err)
		}
		*d = DriverRef{ID: p.ID, Driver: &p}
		return nil
	}
}

// MarshalJSON writes back the shape that was received.
func (d DriverRef) MarshalJSON() ([]byte, error) {
	if d.Driver != nil {
		return json.Marshal(d.Driver)
	}
	if d.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(d.ID)
}

// Vehicle types a route may carry
var VehicleTypes = []string{"car", "van", "truck", "suv", "motorcycle", "air", "train", "bus"}

// DriverRoute is a trip a driver has published
type DriverRoute struct {
	ID                 string        `json:"_id"`
	DriverID           *DriverRef    `json:"driverId,omitempty"`
	Origin             RouteLocation `json:"origin"`
	Destination        RouteLocation `json:"destination"`
	DepartureDate      string        `json:"departureDate"`
	ArrivalDate        string        `json:"arrivalDate,omitempty"`
	Flexibility        string        `json:"flexibility,omitempty"`
	AvailableCapacity  *Capacity     `json:"availableCapacity,omitempty"`
	PriceRange         *PriceRange   `json:"priceRange,omitempty"`
	VehicleType        string        `json:"vehicleType,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Restrictions       *Restrictions `json:"restrictions,omitempty"`
	IsActive           bool          `json:"isActive"`
	Status             string        `json:"status,omitempty"`
	ShowProfile        *bool         `json:"showProfile,omitempty"`
	ViewCount          *int          `json:"viewCount,omitempty"`
	ContactCount       *int          `json:"contactCount,omitempty"`
	RouteName          string        `json:"routeName,omitempty"`
	DaysUntilDeparture *int          `json:"daysUntilDeparture,omitempty"`
	CreatedAt          string        `json:"createdAt,omitempty"`
	UpdatedAt          string        `json:"updatedAt,omitempty"`
}

// DriverDisplayName shortens the driver's name to "First L.".
// A route without a populated first name shows "Driver"; one with no driver at all shows "Anonymous".
func (r *DriverRoute) DriverDisplayName() string {
	if r.DriverID == nil || (r.DriverID.Driver == nil && r.DriverID.ID == "") {
		return "Anonymous"
	}
	d := r.DriverID.Driver
	if d == nil || strings.TrimSpace(d.FirstName) == "" {
		return "Driver"
	}
	initial := ""
	if last := strings.TrimSpace(d.LastName); last != "" {
		initial = string([]rune(last)[:1])
	}
	return fmt.Sprintf("%s %s.", d.FirstName, initial)
}

// RouteSearchParams filters GET /v1/driver-routes
type RouteSearchParams struct {
	OriginCity         string
	DestinationCity    string
	OriginCountry      string
	DestinationCountry string
	DateFrom           string
	DateTo             string
	VehicleType        string
	MaxPrice           *float64
	Page               int
	Limit              int
}

// RouteSearchResult is a page of driver routes
type RouteSearchResult struct {
	Routes     []DriverRoute `json:"routes"`
	Pagination *Pagination   `json:"pagination,omitempty"`
}

// UnmarshalJSON accepts a bare array, {routes, pagination} or {driverRoutes, pagination}.
func (r *RouteSearchResult) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &r.Routes)
	}
	var p struct {
		Routes       []DriverRoute `json:"routes"`
		DriverRoutes []DriverRoute `json:"driverRoutes"`
		Pagination   *Pagination   `json:"pagination"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	r.Routes = p.Routes
	if r.Routes == nil {
		r.Routes = p.DriverRoutes
	}
	r.Pagination = p.Pagination
	return nil
}
