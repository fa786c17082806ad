package rate

import (
	"strconv"
	"strings"
)

// MajorRootPaths are the resources whose id is a major parameter. Buckets
// are not shared between different ids of these resources.
var MajorRootPaths = []string{"channels", "guilds", "webhooks"}

// BucketKey returns the bucket key of a request: the method followed by the
// path skeleton.
func BucketKey(method, path string) string {
	return strings.ToUpper(method) + " " + ParseBucketKey(path)
}

// ParseBucketKey strips the minor ids out of a path. The id following a major
// root path is kept, and reaction emojis are collapsed since every emoji
// shares one bucket.
func ParseBucketKey(path string) string {
	path = strings.SplitN(path, "?", 2)[0]

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return path
	}

	parts = parts[1:] // [0] is just "" since URL

	var skip int

	for _, part := range MajorRootPaths {
		if part == parts[0] {
			skip = 2
			break
		}
	}

	for ; skip < len(parts); skip++ {
		if skip > 0 && parts[skip-1] == "reactions" {
			parts[skip] = ""
			continue
		}

		if _, err := strconv.ParseUint(parts[skip], 10, 64); err == nil {
			parts[skip] = ""
		}
	}

	return "/" + strings.Join(parts, "/")
}
