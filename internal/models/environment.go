package models

import "time"

// EnvironmentalReading is one monitored location on the live dashboard.
type EnvironmentalReading struct {
	ID                    string    `json:"id" yaml:"id"`
	Location              string    `json:"location" yaml:"location"`
	State                 string    `json:"state" yaml:"state"`
	AirQualityIndex       int       `json:"air_quality_index" yaml:"air_quality_index"`
	Temperature           float64   `json:"temperature" yaml:"temperature"`
	Humidity              float64   `json:"humidity" yaml:"humidity"`
	ForestCoverPercentage float64   `json:"forest_cover_percentage" yaml:"forest_cover_percentage"`
	WildlifeCount         int       `json:"wildlife_count" yaml:"wildlife_count"`
	EndangeredSpecies     []string  `json:"endangered_species" yaml:"endangered_species"`
	UpdatedAt             time.Time `json:"updated_at" yaml:"-"`
}

// DashboardSummary aggregates the readings shown as headline figures.
type DashboardSummary struct {
	Locations             int     `json:"locations"`
	AverageForestCover    float64 `json:"average_forest_cover"`
	AverageAirQuality     int     `json:"average_air_quality"`
	AverageTemperature    float64 `json:"average_temperature"`
	EndangeredSpeciesSeen int     `json:"endangered_species"`
}
