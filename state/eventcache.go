package state

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/utils/json"
	"github.com/cordlink/cordlink/utils/ws"
)

// DefaultMaxPending is the default number of events kept per missing entity.
const DefaultMaxPending = 100

// EntityKind is the kind of entity an event can wait for.
type EntityKind uint8

const (
	GuildEntity EntityKind = iota + 1
	ChannelEntity
	UserEntity
)

func (k EntityKind) String() string {
	switch k {
	case GuildEntity:
		return "guild"
	case ChannelEntity:
		return "channel"
	case UserEntity:
		return "user"
	default:
		return fmt.Sprintf("EntityKind(%d)", uint8(k))
	}
}

// CacheKey names the entity a pending event waits for.
type CacheKey struct {
	Kind EntityKind
	ID   discord.Snowflake
}

func guildKey(id discord.GuildID) *CacheKey {
	return &CacheKey{Kind: GuildEntity, ID: discord.Snowflake(id)}
}

func channelKey(id discord.ChannelID) *CacheKey {
	return &CacheKey{Kind: ChannelEntity, ID: discord.Snowflake(id)}
}

func userKey(id discord.UserID) *CacheKey {
	return &CacheKey{Kind: UserEntity, ID: discord.Snowflake(id)}
}

func (k CacheKey) String() string {
	return k.Kind.String() + " " + k.ID.String()
}

// PendingEvent is a dispatch kept until the entity it references is cached.
type PendingEvent struct {
	Type     ws.EventType
	Raw      json.Raw
	Sequence int64
}

// EventCache keeps dispatches that referenced an entity that was not cached
// yet, queued per entity in arrival order.
type EventCache struct {
	// MaxPending bounds each queue. The oldest event is dropped first.
	MaxPending int
	Logger     *zap.Logger

	mu     sync.Mutex
	queues map[CacheKey][]PendingEvent
	total  int
}

// NewEventCache creates an EventCache keeping up to maxPending events per key.
func NewEventCache(maxPending int) *EventCache {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}

	return &EventCache{
		MaxPending: maxPending,
		Logger:     zap.NewNop(),
		queues:     map[CacheKey][]PendingEvent{},
	}
}

// Push queues the Op under key.
func (c *EventCache) Push(key CacheKey, op ws.Op) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.queues[key]

	if len(q) >= c.MaxPending {
		c.Logger.Warn("dropping buffered event",
			zap.Stringer("key", key),
			zap.String("event", string(q[0].Type)),
			zap.Int64("seq", q[0].Sequence))

		q = q[1:]
		c.total--
	}

	c.queues[key] = append(q, PendingEvent{
		Type:     op.Type,
		Raw:      op.Raw,
		Sequence: op.Sequence,
	})
	c.total++
}

// Drain removes and returns the events queued under key, oldest first.
func (c *EventCache) Drain(key CacheKey) []PendingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[key]
	if !ok {
		return nil
	}

	delete(c.queues, key)
	c.total -= len(q)

	return q
}

// Pending returns the number of events queued under key.
func (c *EventCache) Pending(key CacheKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queues[key])
}

// Len returns the number of events queued under all keys.
func (c *EventCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.total
}

// Clear discards every queued event and returns how many there were.
func (c *EventCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.total
	c.queues = map[CacheKey][]PendingEvent{}
	c.total = 0

	return n
}
