package model

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Conditions are the current weather readings the energy model consumes.
// Units follow the provider's metric unit group.
type Conditions struct {
	Temperature    float64 `json:"temp"`
	Pressure       float64 `json:"pressure"`
	CloudCover     float64 `json:"cloudcover"`
	WindSpeed      float64 `json:"windspeed"`
	SolarRadiation float64 `json:"solarradiation"`
}
