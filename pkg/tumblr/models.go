package tumblr

import (
	"strconv"
	"time"
)

// envelope is the common wrapper of every v2 response
type envelope[T any] struct {
	Meta struct {
		Status int    `json:"status"`
		Msg    string `json:"msg"`
	} `json:"meta"`
	Response T `json:"response"`
}

type followingResponse struct {
	TotalBlogs int `json:"total_blogs"`
	Blogs      []struct {
		Name    string `json:"name"`
		URL     string `json:"url"`
		Updated int64  `json:"updated"`
	} `json:"blogs"`
}

type postsResponse struct {
	TotalPosts int       `json:"total_posts"`
	Posts      []rawPost `json:"posts"`
}

// rawPost holds the subset of the legacy post format the scanner needs
type rawPost struct {
	ID                int64  `json:"id"`
	IDString          string `json:"id_string"`
	Type              string `json:"type"`
	BlogName          string `json:"blog_name"`
	Slug              string `json:"slug"`
	PostURL           string `json:"post_url"`
	Timestamp         int64  `json:"timestamp"`
	ParentPostURL     string `json:"parent_post_url"`
	RebloggedFromName string `json:"reblogged_from_name"`
	Body              string `json:"body"`
	Trail             []struct {
		ContentRaw string `json:"content_raw"`
	} `json:"trail"`
	Photos []struct {
		OriginalSize struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"original_size"`
	} `json:"photos"`
}

// FollowingPage is one page of the followed blogs listing
type FollowingPage struct {
	Blogs []string
	Total int
}

// PostsPage is one page of a blog's posts
type PostsPage struct {
	Posts []Post
	Total int
}

// Post is one of TextPost, PhotoPost or UnsupportedPost
type Post interface {
	Meta() PostMeta
}

// PostMeta carries the fields shared by every post variant
type PostMeta struct {
	ID        string
	Type      string
	BlogName  string
	Slug      string
	URL       string
	Timestamp time.Time
	Repost    bool
}

// Meta returns the shared post fields
func (m PostMeta) Meta() PostMeta { return m }

// SlugOrID returns the slug, or the post id when the slug is empty
func (m PostMeta) SlugOrID() string {
	if m.Slug != "" {
		return m.Slug
	}
	return m.ID
}

// TextPost carries the raw HTML body of a text post
type TextPost struct {
	PostMeta
	Content string
}

// PhotoPost carries the original-size URL of the first photo
type PhotoPost struct {
	PostMeta
	PhotoURL string
}

// UnsupportedPost is any post the scanner does not harvest
type UnsupportedPost struct {
	PostMeta
	Reason string
}

// toPost converts the wire format into a typed variant
func (p rawPost) toPost() Post {
	id := p.IDString
	if id == "" && p.ID != 0 {
		id = strconv.FormatInt(p.ID, 10)
	}

	meta := PostMeta{
		ID:       id,
		Type:     p.Type,
		BlogName: p.BlogName,
		Slug:     p.Slug,
		URL:      p.PostURL,
		Repost:   p.ParentPostURL != "" || p.RebloggedFromName != "",
	}
	if p.Timestamp > 0 {
		meta.Timestamp = time.Unix(p.Timestamp, 0).UTC()
	}

	switch p.Type {
	case "text":
		content := p.Body
		if len(p.Trail) > 0 && p.Trail[0].ContentRaw != "" {
			content = p.Trail[0].ContentRaw
		}
		return TextPost{PostMeta: meta, Content: content}
	case "photo":
		if len(p.Photos) == 0 || p.Photos[0].OriginalSize.URL == "" {
			return UnsupportedPost{PostMeta: meta, Reason: "photo post without photos"}
		}
		return PhotoPost{PostMeta: meta, PhotoURL: p.Photos[0].OriginalSize.URL}
	default:
		return UnsupportedPost{PostMeta: meta, Reason: "unsupported post type " + strconv.Quote(p.Type)}
	}
}
