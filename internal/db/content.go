package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bharatverse/bharatverse/internal/models"
)

const storyColumns = `id, user_id, title, content, category, location, likes_count, media_urls, created_at`

func scanStory(row pgx.Row) (models.Story, error) {
	var story models.Story
	err := row.Scan(
		&story.ID,
		&story.UserID,
		&story.Title,
		&story.Content,
		&story.Category,
		&story.Location,
		&story.LikesCount,
		&story.MediaURLs,
		&story.CreatedAt,
	)
	return story, err
}

// ListStories returns the newest stories first.
func (p *Postgres) ListStories(ctx context.Context, limit int) ([]models.Story, error) {
	rows, err := p.Pool.Query(ctx, `SELECT `+storyColumns+` FROM stories ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()

	stories := make([]models.Story, 0, limit)
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}

	return stories, nil
}

func (p *Postgres) InsertStory(ctx context.Context, story models.Story) (models.Story, error) {
	if story.MediaURLs == nil {
		story.MediaURLs = []string{}
	}

	const query = `INSERT INTO stories (id, user_id, title, content, category, location, media_urls, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + storyColumns

	inserted, err := scanStory(p.Pool.QueryRow(ctx, query,
		story.ID,
		story.UserID,
		story.Title,
		story.Content,
		story.Category,
		story.Location,
		story.MediaURLs,
		story.CreatedAt,
	))
	if err != nil {
		return models.Story{}, fmt.Errorf("insert story: %w", err)
	}
	return inserted, nil
}

// IncrementStoryLikes adds one like and returns the updated story.
func (p *Postgres) IncrementStoryLikes(ctx context.Context, id string) (models.Story, error) {
	const query = `UPDATE stories SET likes_count = likes_count + 1 WHERE id = $1 RETURNING ` + storyColumns

	story, err := scanStory(p.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Story{}, models.ErrNotFound
	}
	if err != nil {
		return models.Story{}, fmt.Errorf("like story: %w", err)
	}
	return story, nil
}

const environmentColumns = `id, location, state, air_quality_index, temperature, humidity, forest_cover_percentage, wildlife_count, endangered_species, updated_at`

func scanReading(row pgx.Row) (models.EnvironmentalReading, error) {
	var reading models.EnvironmentalReading
	err := row.Scan(
		&reading.ID,
		&reading.Location,
		&reading.State,
		&reading.AirQualityIndex,
		&reading.Temperature,
		&reading.Humidity,
		&reading.ForestCoverPercentage,
		&reading.WildlifeCount,
		&reading.EndangeredSpecies,
		&reading.UpdatedAt,
	)
	return reading, err
}

// ListEnvironment returns every monitored location ordered by name.
func (p *Postgres) ListEnvironment(ctx context.Context) ([]models.EnvironmentalReading, error) {
	rows, err := p.Pool.Query(ctx, `SELECT `+environmentColumns+` FROM environmental_data ORDER BY location`)
	if err != nil {
		return nil, fmt.Errorf("query environmental data: %w", err)
	}
	defer rows.Close()

	var readings []models.EnvironmentalReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan environmental data: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate environmental data: %w", err)
	}

	return readings, nil
}

// UpsertEnvironment stores the reading for its location. inserted reports whether the
// location was new.
func (p *Postgres) UpsertEnvironment(ctx context.Context, reading models.EnvironmentalReading) (models.EnvironmentalReading, bool, error) {
	if reading.EndangeredSpecies == nil {
		reading.EndangeredSpecies = []string{}
	}

	const query = `INSERT INTO environmental_data (id, location, state, air_quality_index, temperature, humidity, forest_cover_percentage, wildlife_count, endangered_species, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (location) DO UPDATE SET
    state = EXCLUDED.state,
    air_quality_index = EXCLUDED.air_quality_index,
    temperature = EXCLUDED.temperature,
    humidity = EXCLUDED.humidity,
    forest_cover_percentage = EXCLUDED.forest_cover_percentage,
    wildlife_count = EXCLUDED.wildlife_count,
    endangered_species = EXCLUDED.endangered_species,
    updated_at = EXCLUDED.updated_at
RETURNING ` + environmentColumns + `, (xmax = 0) AS inserted`

	var (
		stored   models.EnvironmentalReading
		inserted bool
	)
	err := p.Pool.QueryRow(ctx, query,
		reading.ID,
		reading.Location,
		reading.State,
		reading.AirQualityIndex,
		reading.Temperature,
		reading.Humidity,
		reading.ForestCoverPercentage,
		reading.WildlifeCount,
		reading.EndangeredSpecies,
		reading.UpdatedAt,
	).Scan(
		&stored.ID,
		&stored.Location,
		&stored.State,
		&stored.AirQualityIndex,
		&stored.Temperature,
		&stored.Humidity,
		&stored.ForestCoverPercentage,
		&stored.WildlifeCount,
		&stored.EndangeredSpecies,
		&stored.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return models.EnvironmentalReading{}, false, fmt.Errorf("upsert environmental data: %w", err)
	}
	return stored, inserted, nil
}

const wisdomColumns = `id, title, content, category, difficulty_level, duration_minutes, tags, created_at`

// ListWisdom returns the whole wisdom library, newest first.
func (p *Postgres) ListWisdom(ctx context.Context) ([]models.WisdomEntry, error) {
	rows, err := p.Pool.Query(ctx, `SELECT `+wisdomColumns+` FROM wisdom_content ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query wisdom content: %w", err)
	}
	defer rows.Close()

	var entries []models.WisdomEntry
	for rows.Next() {
		var entry models.WisdomEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Title,
			&entry.Content,
			&entry.Category,
			&entry.DifficultyLevel,
			&entry.DurationMinutes,
			&entry.Tags,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wisdom content: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wisdom content: %w", err)
	}

	return entries, nil
}

// UpsertWisdom inserts an entry or refreshes the one with the same title. inserted
// reports whether the title was new.
func (p *Postgres) UpsertWisdom(ctx context.Context, entry models.WisdomEntry) (bool, error) {
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	const query = `INSERT INTO wisdom_content (id, title, content, category, difficulty_level, duration_minutes, tags, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (title) DO UPDATE SET
    content = EXCLUDED.content,
    category = EXCLUDED.category,
    difficulty_level = EXCLUDED.difficulty_level,
    duration_minutes = EXCLUDED.duration_minutes,
    tags = EXCLUDED.tags
RETURNING (xmax = 0) AS inserted`

	var inserted bool
	if err := p.Pool.QueryRow(ctx, query,
		entry.ID,
		entry.Title,
		entry.Content,
		entry.Category,
		entry.DifficultyLevel,
		entry.DurationMinutes,
		entry.Tags,
		entry.CreatedAt,
	).Scan(&inserted); err != nil {
		return false, fmt.Errorf("upsert wisdom content: %w", err)
	}
	return inserted, nil
}
