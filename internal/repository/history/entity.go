package history

import (
	"encoding/json"
	"time"

	"github.com/seslichat/sesli/internal/types"
)

// UserEntity keys channels by the opaque session identifier the server
// hands out on first contact.
type UserEntity struct {
	ID     uint   `gorm:"primaryKey"`
	UserID string `gorm:"column:user_id;uniqueIndex;type:varchar(64);not null"`

	Channels []ChannelEntity `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

func (UserEntity) TableName() string { return "users" }

// ChannelEntity stores one conversation thread. The turn sequence is a
// JSON-encoded text column replaced whole on every save.
type ChannelEntity struct {
	ID        uint      `gorm:"primaryKey"`
	ChannelID string    `gorm:"column:channel_id;uniqueIndex;type:varchar(64);not null"`
	Name      string    `gorm:"column:channel_name;type:varchar(255)"`
	OwnerID   uint      `gorm:"column:owner_id;index;not null"`
	History   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime(3)"`
}

func (ChannelEntity) TableName() string { return "channels" }

func (c *ChannelEntity) Turns() ([]types.Turn, error) {
	if c.History == "" {
		return []types.Turn{}, nil
	}
	var turns []types.Turn
	if err := json.Unmarshal([]byte(c.History), &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (c *ChannelEntity) SetTurns(turns []types.Turn) error {
	data, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	c.History = string(data)
	return nil
}

func (c *ChannelEntity) ToInfo() types.ChannelInfo {
	return types.ChannelInfo{
		ID:   c.ChannelID,
		Name: c.Name,
	}
}
