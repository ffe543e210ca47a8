package stylists

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store persists stylist profiles as JSON in Redis.
type Store struct {
	redis      *redis.Client
	defaultGap time.Duration
}

// NewStore creates a profile store. defaultGap fills profiles saved without
// a service-time gap.
func NewStore(redisClient *redis.Client, defaultGap time.Duration) *Store {
	if redisClient == nil {
		panic("stylists: redis client required")
	}
	if defaultGap < time.Minute {
		defaultGap = DefaultServiceTimeGap
	}
	return &Store{redis: redisClient, defaultGap: defaultGap}
}

func (s *Store) key(id uuid.UUID) string {
	return fmt.Sprintf("salon:stylist:%s", id)
}

// Get loads a stylist profile.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Stylist, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("stylists: get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stylists: get profile: %w", err)
	}

	var st Stylist
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("stylists: unmarshal profile: %w", err)
	}
	if st.ServiceTimeGapMinutes <= 0 {
		st.ServiceTimeGapMinutes = int(s.defaultGap / time.Minute)
	}
	return &st, nil
}

// Set validates and saves a stylist profile.
func (s *Store) Set(ctx context.Context, st *Stylist) error {
	if st == nil {
		return fmt.Errorf("stylists: %w: nil profile", ErrInvalidProfile)
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("stylists: set profile: %w", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("stylists: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(st.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("stylists: set profile: %w", err)
	}
	return nil
}
