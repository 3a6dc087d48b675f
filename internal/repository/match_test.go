package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressplayinc/connectfour-backend/internal/entity"
	"github.com/pressplayinc/connectfour-backend/testing/suite"
)

func TestMatchRepository_Save(t *testing.T) {
	ctx, st := suite.New(t)

	matchRepo := NewMatchRepository(st.Storage)

	// Given: a finished match
	record := &entity.MatchRecord{
		ID:         "match-1",
		SessionID:  3,
		CreatorID:  1,
		OpponentID: 2,
		WinnerID:   1,
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}

	// When: Save is called
	err := matchRepo.Save(ctx, record)

	// Then: no error should be returned, and the record is stored
	require.NoError(t, err)

	stored, err := matchRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record, stored)
}

func TestMatchRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		matchRepo := NewMatchRepository(st.Storage)

		// When: GetByID is called with an unknown id
		_, err := matchRepo.GetByID(ctx, "no-such-match")

		// Then: the sentinel error comes back
		require.ErrorIs(t, err, ErrMatchNotFound)
	})
}

func TestMatchRepository_Recent(t *testing.T) {
	ctx, st := suite.New(t)

	matchRepo := NewMatchRepository(st.Storage)

	// Given: three archived matches
	ids := []string{"match-a", "match-b", "match-c"}
	for i, id := range ids {
		record := &entity.MatchRecord{
			ID:         id,
			SessionID:  i,
			CreatorID:  1,
			OpponentID: 2,
			Draw:       true,
			FinishedAt: time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, matchRepo.Save(ctx, record))
	}

	// When: asking for the two most recent
	records, err := matchRepo.Recent(ctx, 2)

	// Then: the newest come first
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "match-c", records[0].ID)
	assert.Equal(t, "match-b", records[1].ID)
}
