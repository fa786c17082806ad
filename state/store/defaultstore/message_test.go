package defaultstore

import (
	"testing"

	"github.com/cordlink/cordlink/discord"
)

func populate12Store() *Message {
	store := NewMessage(10)

	// Insert a regular list of messages.
	store.MessageSet(&discord.Message{ID: 1 << 29, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 28, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 27, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 26, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 25, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 24, ChannelID: 1}, false)

	// Newer messages go to the front.
	store.MessageSet(&discord.Message{ID: 1 << 30, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 31, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 32, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 33, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 34, ChannelID: 1}, false)

	// Too old for a full store.
	store.MessageSet(&discord.Message{ID: 1 << 23, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 22, ChannelID: 1}, false)

	store.MessageSet(&discord.Message{ID: 1 << 35, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 36, ChannelID: 1}, false)

	return store
}

func TestMessageSet(t *testing.T) {
	store := populate12Store()

	messages, _ := store.Messages(1)
	if len(messages) != store.MaxMessages() {
		t.Fatalf("store can store %d messages, but returned %d", store.MaxMessages(),
			len(messages))
	}

	maxShift := 36

	for i, actual := range messages {
		expectID := discord.MessageID(1) << (maxShift - i)
		if actual.ID != expectID {
			t.Errorf("message at %d has mismatch ID %d, expecting %d", i, actual.ID, expectID)
		}
	}
}

func TestMessageSetDuplicate(t *testing.T) {
	store := NewMessage(10)

	store.MessageSet(&discord.Message{ID: 1 << 30, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 29, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 30, ChannelID: 1}, false)
	store.MessageSet(&discord.Message{ID: 1 << 29, ChannelID: 1}, false)

	messages, _ := store.Messages(1)
	if len(messages) != 2 {
		t.Fatal("duplicates were inserted:", len(messages))
	}
}

func TestMessagesUpdate(t *testing.T) {
	store := populate12Store()

	store.MessageSet(&discord.Message{ID: 1 << 30, ChannelID: 1, Content: "edited 1"}, true)
	store.MessageSet(&discord.Message{ID: 1 << 31, ChannelID: 1, Content: "edited 2"}, true)
	store.MessageSet(&discord.Message{ID: 1 << 30, ChannelID: 1, Content: "edited 3"}, true)

	// Unknown messages are not added by updates.
	store.MessageSet(&discord.Message{ID: 5, ChannelID: 1, Content: "ghost"}, true)

	expect := map[discord.MessageID]string{
		1 << 30: "edited 3",
		1 << 31: "edited 2",
	}

	messages, _ := store.Messages(1)
	if len(messages) != store.MaxMessages() {
		t.Fatal("update changed the message count:", len(messages))
	}

	for _, msg := range messages {
		if content, ok := expect[msg.ID]; ok && msg.Content != content {
			t.Errorf("id %d expected %q, got %q", msg.ID, content, msg.Content)
		}
		if msg.ID == 5 {
			t.Error("update inserted an unknown message")
		}
	}
}

func TestMessageRemove(t *testing.T) {
	store := populate12Store()

	if err := store.MessageRemove(1, 1<<36); err != nil {
		t.Fatal("MessageRemove failed:", err)
	}

	if _, err := store.Message(1, 1<<36); err == nil {
		t.Fatal("message still present after removal")
	}

	store.MessagesRemove(1)

	if _, err := store.Messages(1); err == nil {
		t.Fatal("channel still present after MessagesRemove")
	}
}
