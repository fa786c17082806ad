package api

import (
	"strconv"
	"testing"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/utils/httputil/httpdriver"
)

// memberPages serves total members with IDs 1 to total.
func memberPages(t *testing.T, total int) httpdriver.MockHandler {
	return func(r *httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		q := r.URL.Query()

		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil || limit < 1 || limit > MaxMemberFetchLimit {
			t.Errorf("invalid limit %q", q.Get("limit"))
		}

		after := 0
		if v := q.Get("after"); v != "" {
			after, _ = strconv.Atoi(v)
		}

		members := []discord.Member{}
		for id := after + 1; id <= total && len(members) < limit; id++ {
			members = append(members, discord.Member{
				User: discord.User{ID: discord.UserID(id)},
			})
		}

		return httpdriver.NewMockResponse(200, nil, members), nil
	}
}

func TestMembersPagination(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		limit    uint
		expect   int
		requests int
	}{
		{"all", 2500, 0, 2500, 3},
		{"limited", 2500, 1200, 1200, 2},
		{"exact page", 1000, 0, 1000, 2},
		{"empty", 0, 0, 0, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, mock := newMockClient("Bot token", memberPages(t, test.total))

			members, err := client.Members(1, test.limit)
			if err != nil {
				t.Fatal("Members failed:", err)
			}

			if len(members) != test.expect {
				t.Fatalf("got %d members, expected %d", len(members), test.expect)
			}
			for i, m := range members {
				if m.User.ID != discord.UserID(i+1) {
					t.Fatalf("member %d has ID %d", i, m.User.ID)
				}
			}

			if n := len(mock.Requests()); n != test.requests {
				t.Fatalf("made %d requests, expected %d", n, test.requests)
			}
		})
	}
}
