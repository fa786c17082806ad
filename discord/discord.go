// Package discord provides the plain entity records shared by the REST client,
// the gateway and the state cache. It does not contain API-specific or
// gateway-specific structures.
//
// Records are values: caches replace them wholesale instead of mutating them
// in place.
package discord

//go:generate go run ../utils/gensnowflake -o ids.go GuildID ChannelID UserID RoleID MessageID EmojiID

// HasFlag returns true if has is OR'ed into flag.
func HasFlag(flag, has uint64) bool {
	return flag&has == has
}
