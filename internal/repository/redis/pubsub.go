package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RoomsPubSub fans out "room changed" notices so every instance can drop
// cached room records and clients can refresh occupancy.
type RoomsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewRoomsPubSub(rdb *redis.Client) *RoomsPubSub {
	return &RoomsPubSub{
		rdb:     rdb,
		channel: ChannelRoomsChanged(),
	}
}

type roomChangedMsg struct {
	Type   string    `json:"type"`
	RoomID uuid.UUID `json:"room_id"`
	Reason string    `json:"reason"`
	TsUnix int64     `json:"ts_unix"`
}

// PublishRoomChanged is a no-op on a nil receiver.
func (p *RoomsPubSub) PublishRoomChanged(ctx context.Context, roomID uuid.UUID, reason string) error {
	if p == nil || p.rdb == nil {
		return nil
	}

	msg := roomChangedMsg{
		Type:   "room_changed",
		RoomID: roomID,
		Reason: reason,
		TsUnix: time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks until ctx is done, calling handler for every notice.
func (p *RoomsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, roomID uuid.UUID, reason string)) error {
	if p == nil || p.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg roomChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil &&
				msg.RoomID != uuid.Nil {
				handler(ctx, msg.RoomID, msg.Reason)
			}
		}
	}
}
