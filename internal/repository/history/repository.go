package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/seslichat/sesli/internal/domains/history"
	"github.com/seslichat/sesli/internal/types"
	"gorm.io/gorm"
)

type GormHistoryRepo struct {
	db *gorm.DB
}

func NewGormHistoryRepo(db *gorm.DB) *GormHistoryRepo {
	return &GormHistoryRepo{db: db}
}

// ensureUser fetches or creates the user row for an opaque session id.
func (g *GormHistoryRepo) ensureUser(ctx context.Context, userID string) (*UserEntity, error) {
	var user UserEntity
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = UserEntity{UserID: userID}
		if err := g.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *GormHistoryRepo) findUser(ctx context.Context, userID string) (*UserEntity, error) {
	var user UserEntity
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, history.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *GormHistoryRepo) findChannel(ctx context.Context, ownerID uint, channelID string) (*ChannelEntity, error) {
	var channel ChannelEntity
	err := g.db.WithContext(ctx).
		Where("channel_id = ? AND owner_id = ?", channelID, ownerID).
		First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, history.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// CreateChannel implements history.Repository.
func (g *GormHistoryRepo) CreateChannel(ctx context.Context, userID, channelID, name string) error {
	user, err := g.ensureUser(ctx, userID)
	if err != nil {
		return err
	}

	var existing ChannelEntity
	err = g.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&existing).Error
	if err == nil {
		return history.ErrChannelExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	channel := ChannelEntity{
		ChannelID: channelID,
		Name:      name,
		OwnerID:   user.ID,
		History:   "[]",
	}
	if err := g.db.WithContext(ctx).Create(&channel).Error; err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

// ChannelExists implements history.Repository.
func (g *GormHistoryRepo) ChannelExists(ctx context.Context, userID, channelID string) (bool, error) {
	user, err := g.findUser(ctx, userID)
	if errors.Is(err, history.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var count int64
	err = g.db.WithContext(ctx).Model(&ChannelEntity{}).
		Where("channel_id = ? AND owner_id = ?", channelID, user.ID).
		Count(&count).Error
	return count > 0, err
}

// ListChannels implements history.Repository.
func (g *GormHistoryRepo) ListChannels(ctx context.Context, userID string) ([]types.ChannelInfo, error) {
	user, err := g.findUser(ctx, userID)
	if errors.Is(err, history.ErrUserNotFound) {
		return []types.ChannelInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	var channels []ChannelEntity
	if err := g.db.WithContext(ctx).
		Where("owner_id = ?", user.ID).
		Order("created_at DESC").
		Find(&channels).Error; err != nil {
		return nil, err
	}

	infos := make([]types.ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		infos = append(infos, ch.ToInfo())
	}
	return infos, nil
}

// LoadTurns implements history.Repository.
func (g *GormHistoryRepo) LoadTurns(ctx context.Context, userID, channelID string) ([]types.Turn, error) {
	user, err := g.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	channel, err := g.findChannel(ctx, user.ID, channelID)
	if err != nil {
		return nil, err
	}
	turns, err := channel.Turns()
	if err != nil {
		return nil, fmt.Errorf("decode history for channel %s: %w", channelID, err)
	}
	return turns, nil
}

// SaveTurns implements history.Repository.
func (g *GormHistoryRepo) SaveTurns(ctx context.Context, userID, channelID string, turns []types.Turn) error {
	user, err := g.findUser(ctx, userID)
	if err != nil {
		return err
	}
	channel, err := g.findChannel(ctx, user.ID, channelID)
	if err != nil {
		return err
	}
	if err := channel.SetTurns(turns); err != nil {
		return fmt.Errorf("encode history for channel %s: %w", channelID, err)
	}
	return g.db.WithContext(ctx).Model(channel).Update("history", channel.History).Error
}

// DeleteChannel implements history.Repository.
func (g *GormHistoryRepo) DeleteChannel(ctx context.Context, userID, channelID string) error {
	user, err := g.findUser(ctx, userID)
	if err != nil {
		return err
	}
	channel, err := g.findChannel(ctx, user.ID, channelID)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Delete(channel).Error
}

// DeleteAllChannels implements history.Repository.
func (g *GormHistoryRepo) DeleteAllChannels(ctx context.Context, userID string) error {
	user, err := g.findUser(ctx, userID)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).
		Where("owner_id = ?", user.ID).
		Delete(&ChannelEntity{}).Error
}
