package content

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/bharatverse/bharatverse/internal/models"
)

func (s *Service) ListEnvironment(ctx context.Context) ([]models.EnvironmentalReading, error) {
	return s.store.ListEnvironment(ctx)
}

// RecordEnvironment stores a reading for its location, replacing the previous one.
func (s *Service) RecordEnvironment(ctx context.Context, reading models.EnvironmentalReading) (models.EnvironmentalReading, error) {
	reading.Location = strings.TrimSpace(reading.Location)
	if reading.Location == "" {
		return models.EnvironmentalReading{}, ErrLocationRequired
	}
	if reading.AirQualityIndex < 0 || reading.WildlifeCount < 0 ||
		reading.ForestCoverPercentage < 0 || reading.ForestCoverPercentage > 100 ||
		reading.Humidity < 0 || reading.Humidity > 100 {
		return models.EnvironmentalReading{}, ErrInvalidReading
	}

	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	reading.UpdatedAt = s.now()

	stored, inserted, err := s.store.UpsertEnvironment(ctx, reading)
	if err != nil {
		return models.EnvironmentalReading{}, err
	}

	change := models.ChangeUpdate
	if inserted {
		change = models.ChangeInsert
	}
	s.publish(ctx, models.CollectionEnvironment, change, stored.ID)
	return stored, nil
}

func (s *Service) DashboardSummary(ctx context.Context) (models.DashboardSummary, error) {
	readings, err := s.store.ListEnvironment(ctx)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	return Summarize(readings), nil
}

// Summarize computes the dashboard headline figures. An empty set yields zeros.
func Summarize(readings []models.EnvironmentalReading) models.DashboardSummary {
	if len(readings) == 0 {
		return models.DashboardSummary{}
	}

	var forest, aqi, temperature float64
	species := make(map[string]struct{})
	for _, r := range readings {
		forest += r.ForestCoverPercentage
		aqi += float64(r.AirQualityIndex)
		temperature += r.Temperature
		for _, name := range r.EndangeredSpecies {
			if name = strings.TrimSpace(name); name != "" {
				species[name] = struct{}{}
			}
		}
	}

	n := float64(len(readings))
	return models.DashboardSummary{
		Locations:             len(readings),
		AverageForestCover:    roundTo(forest/n, 1),
		AverageAirQuality:     int(math.Round(aqi / n)),
		AverageTemperature:    roundTo(temperature/n, 1),
		EndangeredSpeciesSeen: len(species),
	}
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
