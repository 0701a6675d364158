package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"txmon/models"
)

// keyspaceEvents enables keyspace notifications for generic and hash commands.
const keyspaceEvents = "Kgh"

// ConfigTable reads and watches the monitor configuration entries in CONFIG_DB.
type ConfigTable struct {
	client   *redis.Client
	table    string
	configDB int
	logger   *zap.Logger
}

func NewConfigTable(c *Connector, table string, logger *zap.Logger) *ConfigTable {
	return &ConfigTable{client: c.Config, table: table, configDB: c.configDB, logger: logger}
}

// Set writes a single-value entry, e.g. threshold|value=3.
func (t *ConfigTable) Set(ctx context.Context, key, value string) error {
	redisKey := tableKey(t.table, configSeparator, key)
	if err := t.client.HSet(ctx, redisKey, models.FieldValue, value).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", redisKey, err)
	}
	return nil
}

// Load returns a SET command for every entry currently in the table.
func (t *ConfigTable) Load(ctx context.Context) ([]models.Command, error) {
	prefix := t.table + configSeparator
	var keys []string
	iter := t.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", t.table, err)
	}
	sort.Strings(keys)

	cmds := make([]models.Command, 0, len(keys))
	for _, key := range keys {
		cmd, err := t.read(ctx, key)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// read turns the current content of an entry into a command. A missing entry becomes DEL.
func (t *ConfigTable) read(ctx context.Context, key string) (models.Command, error) {
	redisKey := tableKey(t.table, configSeparator, key)
	fields, err := t.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return models.Command{}, fmt.Errorf("failed to read %s: %w", redisKey, err)
	}
	if len(fields) == 0 {
		return models.Command{Key: key, Op: models.OpDel}, nil
	}

	cmd := models.Command{Key: key, Op: models.OpSet}
	for field, value := range fields {
		cmd.Fields = append(cmd.Fields, models.FieldValuePair{Field: field, Value: value})
	}
	sort.Slice(cmd.Fields, func(i, j int) bool { return cmd.Fields[i].Field < cmd.Fields[j].Field })
	return cmd, nil
}

func (t *ConfigTable) channelPrefix() string {
	return fmt.Sprintf("__keyspace@%d__:%s%s", t.configDB, t.table, configSeparator)
}

// Subscription delivers changes of the config table.
type Subscription struct {
	table  *ConfigTable
	pubsub *redis.PubSub
}

// Subscribe enables keyspace notifications (best effort) and subscribes to
// changes of the table. The subscription is confirmed before it returns.
func (t *ConfigTable) Subscribe(ctx context.Context) (*Subscription, error) {
	if err := t.client.ConfigSet(ctx, "notify-keyspace-events", keyspaceEvents).Err(); err != nil {
		t.logger.Warn("failed to enable keyspace notifications", zap.Error(err))
	}

	pubsub := t.client.PSubscribe(ctx, t.channelPrefix()+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", t.table, err)
	}
	return &Subscription{table: t, pubsub: pubsub}, nil
}

// Run re-reads every changed entry and hands it to submit until ctx is done
// or the subscription is closed.
func (s *Subscription) Run(ctx context.Context, submit func(context.Context, models.Command) error) error {
	defer s.pubsub.Close()

	prefix := s.table.channelPrefix()
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			key := strings.TrimPrefix(msg.Channel, prefix)
			cmd, err := s.table.read(ctx, key)
			if err != nil {
				s.table.logger.Error("failed to read config entry",
					zap.String("key", key), zap.String("event", msg.Payload), zap.Error(err))
				continue
			}
			if err := submit(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

// Close stops the subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
