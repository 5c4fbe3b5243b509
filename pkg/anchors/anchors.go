package anchors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "redirects:v3"
	// urlSegment is where the target URL starts in a ":"-split key
	urlSegment = 6
	scanCount  = 500
)

// Finder resolves documentation anchors to URLs from redirect keys in Redis
type Finder struct {
	redis *redis.Client
}

// NewFinder creates a Finder on client
func NewFinder(client *redis.Client) *Finder {
	return &Finder{redis: client}
}

// Find returns the sorted, distinct URLs of every redirect key containing query
func (f *Finder) Find(ctx context.Context, query string) ([]string, error) {
	pattern := fmt.Sprintf("*%s*%s*", keyPrefix, query)

	seen := make(map[string]struct{})
	iter := f.redis.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		if url, ok := URLFromKey(iter.Val()); ok {
			seen[url] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan redirect keys: %w", err)
	}

	urls := make([]string, 0, len(seen))
	for url := range seen {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls, nil
}

// URLFromKey extracts the target URL of a redirect key. Keys without an
// http:// target are skipped.
func URLFromKey(key string) (string, bool) {
	if !strings.Contains(key, "http://") {
		return "", false
	}
	parts := strings.Split(key, ":")
	if len(parts) <= urlSegment {
		return "", false
	}
	return strings.Join(parts[urlSegment:], ":"), true
}
