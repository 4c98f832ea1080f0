package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ebis/models"
	"ebis/storage"
)

// HistoryKeyPrefix prefixes every stored history record
const HistoryKeyPrefix = "ebis_analysis_history"

// DefaultHistoryLimit caps how many records a user keeps
const DefaultHistoryLimit = 50

// KVHistoryRepository stores one key per record:
// ebis_analysis_history:<userID>:<recordID>
type KVHistoryRepository struct {
	store storage.Store
	limit int

	mu sync.Mutex
}

// NewKVHistoryRepository creates a history repository keeping at most
// limit records per user
func NewKVHistoryRepository(store storage.Store, limit int) *KVHistoryRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &KVHistoryRepository{store: store, limit: limit}
}

func userPrefix(userID string) string {
	return HistoryKeyPrefix + ":" + userID + ":"
}

func recordKey(userID string, id uuid.UUID) string {
	return userPrefix(userID) + id.String()
}

// sortNewestFirst orders by AnalyzedAt descending, ID breaking ties
func sortNewestFirst(records []models.HistoryRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].AnalyzedAt.Equal(records[j].AnalyzedAt) {
			return records[i].AnalyzedAt.After(records[j].AnalyzedAt)
		}
		return records[i].ID.String() > records[j].ID.String()
	})
}

// loadAll reads every record of a user, newest first
func (r *KVHistoryRepository) loadAll(ctx context.Context, userID string) ([]models.HistoryRecord, error) {
	keys, err := r.store.Keys(ctx, userPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	records := make([]models.HistoryRecord, 0, len(keys))
	for _, key := range keys {
		var rec models.HistoryRecord
		found, err := storage.GetJSON(ctx, r.store, key, &rec)
		if err != nil {
			return nil, fmt.Errorf("failed to load history record: %w", err)
		}
		if found {
			records = append(records, rec)
		}
	}
	sortNewestFirst(records)
	return records, nil
}

// Add stores rec and trims the user's history to the configured limit,
// dropping the oldest non-favorite records first
func (r *KVHistoryRepository) Add(ctx context.Context, rec *models.HistoryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := storage.SetJSON(ctx, r.store, recordKey(rec.UserID, rec.ID), rec); err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}

	records, err := r.loadAll(ctx, rec.UserID)
	if err != nil {
		return err
	}
	excess := len(records) - r.limit
	if excess <= 0 {
		return nil
	}

	victims := make([]models.HistoryRecord, 0, excess)
	// oldest non-favorites first, then oldest favorites
	for pass := 0; pass < 2 && len(victims) < excess; pass++ {
		for i := len(records) - 1; i >= 0 && len(victims) < excess; i-- {
			if records[i].ID == rec.ID {
				continue
			}
			if (pass == 0) == records[i].Favorite {
				continue
			}
			victims = append(victims, records[i])
		}
	}

	for _, v := range victims {
		if err := r.store.Delete(ctx, recordKey(v.UserID, v.ID)); err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}
	return nil
}

// List returns up to limit records, newest first. A limit of zero or
// less returns everything.
func (r *KVHistoryRepository) List(ctx context.Context, userID string, limit int) ([]models.HistoryRecord, error) {
	records, err := r.loadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get returns one record
func (r *KVHistoryRepository) Get(ctx context.Context, userID string, id uuid.UUID) (*models.HistoryRecord, error) {
	var rec models.HistoryRecord
	found, err := storage.GetJSON(ctx, r.store, recordKey(userID, id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrHistoryNotFound
	}
	return &rec, nil
}

// Delete removes one record
func (r *KVHistoryRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(userID, id)
	if _, err := r.store.Get(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrHistoryNotFound
		}
		return err
	}
	return r.store.Delete(ctx, key)
}

// SetFavorite flags or unflags a record
func (r *KVHistoryRepository) SetFavorite(ctx context.Context, userID string, id uuid.UUID, favorite bool) (*models.HistoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec.Favorite = favorite
	if err := storage.SetJSON(ctx, r.store, recordKey(userID, id), rec); err != nil {
		return nil, fmt.Errorf("failed to save history record: %w", err)
	}
	return rec, nil
}

// Clear removes all of a user's records and returns how many there were
func (r *KVHistoryRepository) Clear(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := r.store.Keys(ctx, userPrefix(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to list history: %w", err)
	}
	for _, key := range keys {
		if err := r.store.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("failed to clear history: %w", err)
		}
	}
	return len(keys), nil
}
