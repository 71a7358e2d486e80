package model

// Observer is a named ground location from which satellites are tracked.
// Name is the identity key and is compared case-sensitively.
type Observer struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ObserverInput is the boundary form of an Observer. Latitude and Longitude
// are pointers so that an absent coordinate can be told apart from a zero one
// (an observer on the equator or the prime meridian is legitimate).
type ObserverInput struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewObserverInput is a convenience for callers that already hold both
// coordinates.
func NewObserverInput(name string, lat, lon float64) ObserverInput {
	return ObserverInput{Name: name, Latitude: &lat, Longitude: &lon}
}
