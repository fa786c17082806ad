package discord

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSnowflake(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		_, err := ParseSnowflake("175928847299117063")
		if err != nil {
			t.Fatal("Failed to parse snowflake:", err)
		}
	})

	const value = 175928847299117063
	var expect = time.Date(2016, 04, 30, 11, 18, 25, 796*int(time.Millisecond), time.UTC)

	t.Run("methods", func(t *testing.T) {
		s := Snowflake(value)

		if ts := s.Time(); !ts.Equal(expect) {
			t.Fatal("Unexpected time (expected/got):", expect, ts)
		}

		if s.Worker() != 1 {
			t.Fatal("Unexpected worker:", s.Worker())
		}

		if s.Increment() != 7 {
			t.Fatal("Unexpected increment:", s.Increment())
		}
	})

	t.Run("new", func(t *testing.T) {
		if s := NewSnowflake(expect); !s.Time().Equal(expect) {
			t.Fatal("Unexpected new snowflake from expected time:", s)
		}
	})

	t.Run("null", func(t *testing.T) {
		var id GuildID
		if err := json.Unmarshal([]byte("null"), &id); err != nil {
			t.Fatal("Failed to unmarshal null:", err)
		}
		if !id.IsNull() || id.IsValid() {
			t.Fatal("Expected null guild ID, got", int64(id))
		}

		b, err := json.Marshal(id)
		if err != nil {
			t.Fatal("Failed to marshal:", err)
		}
		if string(b) != "null" {
			t.Fatal("Unexpected null encoding:", string(b))
		}
	})
}

func TestPermissionsJSON(t *testing.T) {
	var tests = []struct {
		in  string
		out Permissions
	}{
		{`"8"`, PermissionAdministrator},
		{`8`, PermissionAdministrator},
		{`"1049600"`, PermissionViewChannel | PermissionConnect},
		{`null`, 0},
	}

	for _, test := range tests {
		var p Permissions
		if err := json.Unmarshal([]byte(test.in), &p); err != nil {
			t.Fatalf("Failed to unmarshal %s: %v", test.in, err)
		}
		if p != test.out {
			t.Fatalf("Unexpected permissions for %s: %d", test.in, p)
		}
	}
}

func TestMemberRoleDiff(t *testing.T) {
	old := Member{RoleIDs: []RoleID{1, 2, 3}}
	new := Member{RoleIDs: []RoleID{2, 3, 4}}

	added, removed := old.RoleDiff(new)
	if len(added) != 1 || added[0] != 4 {
		t.Fatal("Unexpected added roles:", added)
	}
	if len(removed) != 1 || removed[0] != 1 {
		t.Fatal("Unexpected removed roles:", removed)
	}

	if old.Equal(new) {
		t.Fatal("Members with different roles compared equal")
	}
	if !new.Equal(Member{RoleIDs: []RoleID{4, 3, 2}}) {
		t.Fatal("Role order should not matter")
	}
}
