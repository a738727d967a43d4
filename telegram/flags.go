package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Flag keys shared by the dispatcher and the admin surface
const (
	flagBotActive     = "flags:bot_active"
	flagEmergencyStop = "flags:emergency_stop"
)

// FlagStore holds the process-wide circuit breaker flags in Redis so every
// worker process observes the same state.
type FlagStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewFlagStore creates a flag store. The prefix namespaces keys per
// deployment; a trailing separator is stripped so configured values like
// "boitata:" and "boitata" produce the same keys.
func NewFlagStore(rdb redis.UniversalClient, prefix string) *FlagStore {
	return &FlagStore{rdb: rdb, prefix: strings.TrimSuffix(prefix, ":")}
}

func (s *FlagStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *FlagStore) get(ctx context.Context, name string, def bool) (bool, error) {
	val, err := s.rdb.Get(ctx, s.key(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return def, nil
		}
		return def, fmt.Errorf("failed to read flag %s: %w", name, err)
	}
	return val == "1", nil
}

func (s *FlagStore) set(ctx context.Context, name string, on bool) error {
	val := "0"
	if on {
		val = "1"
	}
	if err := s.rdb.Set(ctx, s.key(name), val, 0).Err(); err != nil {
		return fmt.Errorf("failed to set flag %s: %w", name, err)
	}
	return nil
}

// BotActive reports whether outbound sends are enabled. Defaults to true when
// the flag was never set.
func (s *FlagStore) BotActive(ctx context.Context) (bool, error) {
	return s.get(ctx, flagBotActive, true)
}

// SetBotActive toggles outbound sends
func (s *FlagStore) SetBotActive(ctx context.Context, on bool) error {
	return s.set(ctx, flagBotActive, on)
}

// EmergencyStop reports whether the kill switch is engaged. Defaults to false.
func (s *FlagStore) EmergencyStop(ctx context.Context) (bool, error) {
	return s.get(ctx, flagEmergencyStop, false)
}

// SetEmergencyStop engages or releases the kill switch
func (s *FlagStore) SetEmergencyStop(ctx context.Context, on bool) error {
	return s.set(ctx, flagEmergencyStop, on)
}
