package history

import (
	"context"
	"errors"

	"github.com/seslichat/sesli/internal/types"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrChannelExists   = errors.New("channel already exists")
	ErrUserNotFound    = errors.New("user not found")
)

// Repository is the persistence contract for per-(user, channel) chat
// history. A channel's turn sequence is stored and replaced as a whole.
type Repository interface {
	CreateChannel(ctx context.Context, userID, channelID, name string) error
	ChannelExists(ctx context.Context, userID, channelID string) (bool, error)
	ListChannels(ctx context.Context, userID string) ([]types.ChannelInfo, error)
	LoadTurns(ctx context.Context, userID, channelID string) ([]types.Turn, error)
	SaveTurns(ctx context.Context, userID, channelID string, turns []types.Turn) error
	DeleteChannel(ctx context.Context, userID, channelID string) error
	DeleteAllChannels(ctx context.Context, userID string) error
}
