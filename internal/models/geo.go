package models

// GeoLocation is the response shape of the ip-api.com lookup service.
type GeoLocation struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Country   string  `json:"country"`
	City      string  `json:"city"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// IsValid checks if the geo location data is usable
func (g *GeoLocation) IsValid() bool {
	return g.Status == "success"
}

// ToGeoData converts a lookup response to the persisted enrichment shape.
func (g *GeoLocation) ToGeoData() *GeoData {
	return &GeoData{
		Latitude:  g.Latitude,
		Longitude: g.Longitude,
		Country:   g.Country,
		City:      g.City,
	}
}
