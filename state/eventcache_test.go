package state

import (
	"testing"

	"github.com/cordlink/cordlink/utils/json"
	"github.com/cordlink/cordlink/utils/ws"
)

func TestEventCacheOrder(t *testing.T) {
	c := NewEventCache(3)

	guild := *guildKey(1)
	channel := *channelKey(1)

	for seq := int64(1); seq <= 5; seq++ {
		c.Push(guild, ws.Op{Type: "GUILD_UPDATE", Sequence: seq, Raw: json.Raw(`{}`)})
	}
	c.Push(channel, ws.Op{Type: "MESSAGE_CREATE", Sequence: 6})

	if n := c.Pending(guild); n != 3 {
		t.Fatal("queue not bounded:", n)
	}
	if n := c.Len(); n != 4 {
		t.Fatal("unexpected total:", n)
	}

	pending := c.Drain(guild)
	for i, p := range pending {
		if p.Sequence != int64(i+3) {
			t.Fatalf("event %d has sequence %d, expected the newest in order", i, p.Sequence)
		}
	}

	if c.Pending(guild) != 0 || c.Drain(guild) != nil {
		t.Fatal("drained queue not removed")
	}

	if n := c.Clear(); n != 1 {
		t.Fatal("unexpected number of cleared events:", n)
	}
	if c.Len() != 0 {
		t.Fatal("events left after clear")
	}
}

func TestCacheKeyString(t *testing.T) {
	if s := guildKey(42).String(); s != "guild 42" {
		t.Fatal("unexpected key string:", s)
	}
	if s := EntityKind(9).String(); s != "EntityKind(9)" {
		t.Fatal("unexpected kind string:", s)
	}
}
