package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bharatverse/bharatverse/internal/content"
	"github.com/bharatverse/bharatverse/internal/db"
	"github.com/bharatverse/bharatverse/internal/models"
	"github.com/bharatverse/bharatverse/internal/realtime"
	"github.com/bharatverse/bharatverse/internal/utils"
)

const defaultSeedFile = "data/seed/content.yaml"

type seedFile struct {
	Environment []models.EnvironmentalReading `yaml:"environment"`
	Wisdom      []models.WisdomEntry          `yaml:"wisdom"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	path := defaultSeedFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	seed, err := readSeed(path)
	if err != nil {
		log.Fatalf("read seed file: %v", err)
	}

	ctx := context.Background()

	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer postgres.Close()

	if err := postgres.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	// Running servers pick up seeded readings through the relay when Redis is configured.
	var hubOpts []realtime.Option
	if cfg.Redis.Enabled() {
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer client.Close()
		hubOpts = append(hubOpts, realtime.WithRedis(client, cfg.Redis.Channel))
	}
	hub := realtime.NewHub(hubOpts...)
	defer hub.Close()

	svc := content.NewService(postgres, hub, nil)

	for _, reading := range seed.Environment {
		stored, err := svc.RecordEnvironment(ctx, reading)
		if err != nil {
			log.Fatalf("record %s: %v", reading.Location, err)
		}
		log.Printf("environment %s (%s) stored as %s", stored.Location, stored.State, stored.ID)
	}

	inserted := 0
	for _, entry := range seed.Wisdom {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.CreatedAt = time.Now().UTC()

		isNew, err := postgres.UpsertWisdom(ctx, entry)
		if err != nil {
			log.Fatalf("upsert wisdom %q: %v", entry.Title, err)
		}
		if isNew {
			inserted++
			if err := hub.Publish(ctx, models.ChangeEvent{
				Collection: models.CollectionWisdom,
				Type:       models.ChangeInsert,
				RecordID:   entry.ID,
				At:         entry.CreatedAt,
			}); err != nil {
				log.Printf("publish wisdom change: %v", err)
			}
		}
	}

	log.Printf("seeded %d readings and %d wisdom entries (%d new)", len(seed.Environment), len(seed.Wisdom), inserted)
}

func readSeed(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return &seed, nil
}

// validate rejects entries that would collide on the upsert keys or be refused by the
// content service.
func (s *seedFile) validate() error {
	locations := make(map[string]struct{}, len(s.Environment))
	for i, reading := range s.Environment {
		location := strings.TrimSpace(reading.Location)
		if location == "" {
			return fmt.Errorf("environment[%d]: location is required", i)
		}
		if _, dup := locations[location]; dup {
			return fmt.Errorf("environment[%d]: duplicate location %q", i, location)
		}
		locations[location] = struct{}{}
		if reading.ForestCoverPercentage < 0 || reading.ForestCoverPercentage > 100 ||
			reading.Humidity < 0 || reading.Humidity > 100 || reading.AirQualityIndex < 0 {
			return fmt.Errorf("environment[%d] %s: reading out of range", i, location)
		}
	}

	titles := make(map[string]struct{}, len(s.Wisdom))
	for i, entry := range s.Wisdom {
		title := strings.TrimSpace(entry.Title)
		if title == "" || strings.TrimSpace(entry.Content) == "" {
			return fmt.Errorf("wisdom[%d]: title and content are required", i)
		}
		if strings.TrimSpace(entry.Category) == "" {
			return fmt.Errorf("wisdom[%d] %s: category is required", i, title)
		}
		if _, dup := titles[title]; dup {
			return fmt.Errorf("wisdom[%d]: duplicate title %q", i, title)
		}
		titles[title] = struct{}{}
	}
	return nil
}
