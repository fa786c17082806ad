package httputil

import (
	"net/url"
	"reflect"

	"github.com/gorilla/schema"

	"github.com/cordlink/cordlink/discord"
)

// SchemaEncoder encodes a struct into URL query values.
type SchemaEncoder interface {
	Encode(src interface{}) (url.Values, error)
}

// DefaultSchema encodes through gorilla/schema with the "schema" struct tag.
// Snowflakes are encoded as their decimal string.
type DefaultSchema struct {
	encoder *schema.Encoder
}

var _ SchemaEncoder = (*DefaultSchema)(nil)

// NewSchema creates a DefaultSchema.
func NewSchema() *DefaultSchema {
	enc := schema.NewEncoder()
	enc.SetAliasTag("schema")

	snowflake := func(v reflect.Value) string {
		return discord.Snowflake(v.Int()).String()
	}

	enc.RegisterEncoder(discord.Snowflake(0), snowflake)
	enc.RegisterEncoder(discord.GuildID(0), snowflake)
	enc.RegisterEncoder(discord.ChannelID(0), snowflake)
	enc.RegisterEncoder(discord.UserID(0), snowflake)
	enc.RegisterEncoder(discord.MessageID(0), snowflake)

	return &DefaultSchema{encoder: enc}
}

func (s *DefaultSchema) Encode(src interface{}) (url.Values, error) {
	if s.encoder == nil {
		*s = *NewSchema()
	}

	values := url.Values{}
	if err := s.encoder.Encode(src, values); err != nil {
		return nil, err
	}
	return values, nil
}
