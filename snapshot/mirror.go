// Package snapshot mirrors the retained state topics into Redis so
// dashboards and external tooling can read the latest factory state
// without a broker subscription. The mirror is optional: a nil *Mirror is
// safe to use and does nothing.
package snapshot

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Mirror struct {
	client *redis.Client
}

func NewMirror(client *redis.Client) *Mirror {
	if client == nil {
		return nil
	}
	return &Mirror{client: client}
}

func snapshotKey(topic string) string {
	return "ccu:snapshot:" + topic
}

const allTopicsKey = "ccu:snapshots"

// Set stores the latest published payload for a topic.
func (m *Mirror) Set(ctx context.Context, topic string, payload []byte) error {
	if m == nil {
		return nil
	}
	pipe := m.client.Pipeline()
	pipe.Set(ctx, snapshotKey(topic), payload, 0)
	pipe.SAdd(ctx, allTopicsKey, topic)
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns the last payload stored for a topic, nil when absent.
func (m *Mirror) Get(ctx context.Context, topic string) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := m.client.Get(ctx, snapshotKey(topic)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// Topics lists every topic with a mirrored snapshot.
func (m *Mirror) Topics(ctx context.Context) ([]string, error) {
	if m == nil {
		return nil, nil
	}
	return m.client.SMembers(ctx, allTopicsKey).Result()
}

// Flush removes all mirrored snapshots, used on factory reset.
func (m *Mirror) Flush(ctx context.Context) error {
	if m == nil {
		return nil
	}
	topics, err := m.Topics(ctx)
	if err != nil {
		return err
	}
	pipe := m.client.Pipeline()
	for _, t := range topics {
		pipe.Del(ctx, snapshotKey(t))
	}
	pipe.Del(ctx, allTopicsKey)
	_, err = pipe.Exec(ctx)
	return err
}
