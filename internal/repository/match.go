package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pressplayinc/connectfour-backend/internal/entity"
)

var ErrMatchNotFound = errors.New("match not found")

// recentLimit caps the recent-match index.
const recentLimit = 100

const (
	matchKeyPrefix = "match:"
	recentKey      = "match:recent"
)

type MatchRepository interface {
	Save(ctx context.Context, record *entity.MatchRecord) error
	GetByID(ctx context.Context, id string) (*entity.MatchRecord, error)
	Recent(ctx context.Context, limit int64) ([]*entity.MatchRecord, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

// Save - stores the record under its id and pushes the id onto the capped
// recent index.
func (that *dbMatch) Save(ctx context.Context, record *entity.MatchRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	matchKey := matchKeyPrefix + record.ID
	if err = that.client.Set(ctx, matchKey, recordJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set match: %w", err)
	}

	pipe := that.client.TxPipeline()
	pipe.LPush(ctx, recentKey, record.ID)
	pipe.LTrim(ctx, recentKey, 0, recentLimit-1)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (*entity.MatchRecord, error) {
	matchKey := matchKeyPrefix + id

	response, err := that.client.Get(ctx, matchKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}

	var record entity.MatchRecord
	if err = json.Unmarshal([]byte(response), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &record, nil
}

// Recent - the most recently finished matches, newest first.
func (that *dbMatch) Recent(ctx context.Context, limit int64) ([]*entity.MatchRecord, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}

	ids, err := that.client.LRange(ctx, recentKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches: %w", err)
	}

	records := make([]*entity.MatchRecord, 0, len(ids))
	for _, id := range ids {
		record, err := that.GetByID(ctx, id)
		if errors.Is(err, ErrMatchNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}
