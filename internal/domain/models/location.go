package models

import "fmt"

// GeoPoint is the position captured by the driver's device when a trip is submitted.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// MapURL formats an embeddable map link, format must contain two %f verbs: latitude then longitude.
func (p GeoPoint) MapURL(format string) string {
	if format == "" {
		return ""
	}
	return fmt.Sprintf(format, p.Latitude, p.Longitude)
}
