package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/seslichat/sesli/internal/config"
	"github.com/seslichat/sesli/internal/types"
	"github.com/seslichat/sesli/pkg/Logger"
)

// Service is the narrow read/write gateway the response pipeline uses to
// load prior context and record finished turns.
type Service interface {
	// CreateChannel registers a new channel titled from the opening text
	// and returns its id.
	CreateChannel(ctx context.Context, userID, seedText string) (string, error)
	ChannelExists(ctx context.Context, userID, channelID string) (bool, error)
	ListChannels(ctx context.Context, userID string) ([]types.ChannelInfo, error)
	// Load returns the retained history, or the context-window view when
	// forModelContext is set: audio URLs stripped and the oldest turns
	// dropped whole once the character budget is exhausted.
	Load(ctx context.Context, userID, channelID string, forModelContext bool) ([]types.Turn, error)
	// Save atomically replaces the stored history with the given
	// sequence truncated to the retention cap.
	Save(ctx context.Context, userID, channelID string, turns []types.Turn) error
	DeleteChannel(ctx context.Context, userID, channelID string) error
	DeleteAllChannels(ctx context.Context, userID string) error
}

type service struct {
	repo       Repository
	cache      *redis.Client // nil disables caching
	cacheTTL   time.Duration
	maxTurns   int
	maxContext int
	titleChars int
	logger     *Logger.Logger
}

func New(repo Repository, cache *redis.Client, cfg config.ChatConfig, cacheTTL time.Duration, logger *Logger.Logger) Service {
	return &service{
		repo:       repo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		maxTurns:   cfg.MaxHistoryTurns,
		maxContext: cfg.MaxContextChars,
		titleChars: cfg.ChannelTitleChars,
		logger:     logger,
	}
}

func channelHistoryKey(channelID string) string {
	return fmt.Sprintf("channel:%s:history", channelID)
}

// CreateChannel implements Service.
func (s *service) CreateChannel(ctx context.Context, userID, seedText string) (string, error) {
	channelID := uuid.NewString()
	name := titleFromText(seedText, s.titleChars)
	if err := s.repo.CreateChannel(ctx, userID, channelID, name); err != nil {
		return "", err
	}
	return channelID, nil
}

// ChannelExists implements Service.
func (s *service) ChannelExists(ctx context.Context, userID, channelID string) (bool, error) {
	return s.repo.ChannelExists(ctx, userID, channelID)
}

// ListChannels implements Service.
func (s *service) ListChannels(ctx context.Context, userID string) ([]types.ChannelInfo, error) {
	return s.repo.ListChannels(ctx, userID)
}

// Load implements Service.
func (s *service) Load(ctx context.Context, userID, channelID string, forModelContext bool) ([]types.Turn, error) {
	turns, err := s.loadFull(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	if !forModelContext {
		return turns, nil
	}
	return contextWindow(turns, s.maxContext), nil
}

func (s *service) loadFull(ctx context.Context, userID, channelID string) ([]types.Turn, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(channelHistoryKey(channelID)).Result()
		if err == nil {
			var turns []types.Turn
			if err := json.Unmarshal([]byte(raw), &turns); err == nil {
				return turns, nil
			}
			s.logger.Warnf("dropping unreadable history cache entry for channel %s", channelID)
		} else if err != redis.Nil {
			s.logger.Warnf("history cache read failed: %v", err)
		}
	}

	turns, err := s.repo.LoadTurns(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(turns); err == nil {
			if err := s.cache.Set(channelHistoryKey(channelID), data, s.cacheTTL).Err(); err != nil {
				s.logger.Warnf("history cache write failed: %v", err)
			}
		}
	}
	return turns, nil
}

// Save implements Service.
func (s *service) Save(ctx context.Context, userID, channelID string, turns []types.Turn) error {
	if s.maxTurns > 0 && len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	if err := s.repo.SaveTurns(ctx, userID, channelID, turns); err != nil {
		return err
	}
	s.invalidate(channelID)
	return nil
}

// DeleteChannel implements Service.
func (s *service) DeleteChannel(ctx context.Context, userID, channelID string) error {
	if err := s.repo.DeleteChannel(ctx, userID, channelID); err != nil {
		return err
	}
	s.invalidate(channelID)
	return nil
}

// DeleteAllChannels implements Service.
func (s *service) DeleteAllChannels(ctx context.Context, userID string) error {
	channels, err := s.repo.ListChannels(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAllChannels(ctx, userID); err != nil {
		return err
	}
	for _, ch := range channels {
		s.invalidate(ch.ID)
	}
	return nil
}

func (s *service) invalidate(channelID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(channelHistoryKey(channelID)).Err(); err != nil {
		s.logger.Warnf("history cache invalidation failed: %v", err)
	}
}

// contextWindow strips audio URLs and keeps the newest whole turns whose
// cumulative content length fits the budget. Overflowing older turns are
// dropped entirely, never clipped mid-message.
func contextWindow(turns []types.Turn, budget int) []types.Turn {
	out := make([]types.Turn, 0, len(turns))
	total := 0
	for i := len(turns) - 1; i >= 0; i-- {
		length := len(turns[i].Content)
		if total+length > budget {
			break
		}
		out = append(out, types.Turn{Role: turns[i].Role, Content: turns[i].Content})
		total += length
	}
	// collected newest-first; restore append order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// titleFromText derives a channel name from the opening message: its
// first sentence, clipped to maxChars on a word boundary.
func titleFromText(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "New chat"
	}
	if idx := strings.IndexAny(text, ".!?\n"); idx > 0 {
		text = text[:idx]
	}
	if maxChars > 0 && len(text) > maxChars {
		clipped := text[:maxChars]
		if sp := strings.LastIndex(clipped, " "); sp > 0 {
			clipped = clipped[:sp]
		}
		text = clipped
	}
	return strings.TrimSpace(text)
}
