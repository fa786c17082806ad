package rate

import "testing"

func TestBucketKey(t *testing.T) {
	var tests = [][2]string{
		{"/guilds/123123/messages",
			"/guilds/123123/messages"},
		{"/guilds/123123/",
			"/guilds/123123/"},
		{"/channels/123131231",
			"/channels/123131231"},
		{"/channels/123123/message/123456",
			"/channels/123123/message/"},
		{"/webhooks/5/token",
			"/webhooks/5/token"},
		{"/users/123123", "/users/"},
		{"/users/123123/", "/users//"},
		{"/guilds/1/members?limit=1000",
			"/guilds/1/members"},
		{"/channels/1/messages/1/reactions/🤔/@me",
			"/channels/1/messages//reactions//@me"},
		{"/channels/1/messages/2/reactions/thonk:123123/@me",
			"/channels/1/messages//reactions//@me"},
		{"/channels/486833611564253186/messages/540519319814275089/reactions/🥺/@me",
			"/channels/486833611564253186/messages//reactions//@me"},
	}

	for _, conds := range tests {
		key := ParseBucketKey(conds[0])
		if key != conds[1] {
			t.Fatalf("Expected/got\n%s\n%s", conds[1], key)
		}
	}
}

func TestBucketKeyMethod(t *testing.T) {
	get := BucketKey("get", "/guilds/1/roles/2")
	patch := BucketKey("PATCH", "/guilds/1/roles/3")

	if get != "GET /guilds/1/roles/" {
		t.Fatalf("unexpected GET key %q", get)
	}
	if patch != "PATCH /guilds/1/roles/" {
		t.Fatalf("unexpected PATCH key %q", patch)
	}
	if get == patch {
		t.Fatal("methods share a bucket")
	}
}
