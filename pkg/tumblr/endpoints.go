package tumblr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// BaseURL is the Tumblr API host
	BaseURL = "https://api.tumblr.com"

	// FollowingEndpoint lists the blogs the authenticated user follows
	FollowingEndpoint = "/v2/user/following"

	// PostsEndpoint lists a blog's posts
	PostsEndpoint = "/v2/blog/%s/posts"

	// PageSize is the largest page the API returns
	PageSize = 20
)

// BlogIdentifier expands a bare blog name to its tumblr.com hostname
func BlogIdentifier(blog string) string {
	if strings.Contains(blog, ".") {
		return blog
	}
	return blog + ".tumblr.com"
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > PageSize {
		return PageSize
	}
	return limit
}

// FollowingURL builds the following listing URL for one page
func FollowingURL(base, apiKey string, limit, offset int) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(clampLimit(limit)))
	params.Set("offset", strconv.Itoa(offset))
	if apiKey != "" {
		params.Set("api_key", apiKey)
	}
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), FollowingEndpoint, params.Encode())
}

// PostsURL builds the post listing URL for one page. A zero after means no cursor.
func PostsURL(base, apiKey, blog string, after time.Time, limit, offset int) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(clampLimit(limit)))
	params.Set("offset", strconv.Itoa(offset))
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	if apiKey != "" {
		params.Set("api_key", apiKey)
	}
	path := fmt.Sprintf(PostsEndpoint, url.PathEscape(BlogIdentifier(blog)))
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), path, params.Encode())
}

// redact hides the api key in URLs that end up in logs and errors
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
