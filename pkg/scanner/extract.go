package scanner

import (
	"strconv"
	"strings"

	"artcollector/pkg/models"

	"golang.org/x/net/html"
)

// asset is one media URL found in a post
type asset struct {
	url  string
	kind models.MediaKind
}

// bestCandidate picks the widest candidate of a srcset value. Candidates
// without a usable width descriptor lose to any that have one; among those
// the last one wins.
func bestCandidate(srcset string) string {
	best := ""
	bestWidth := -1
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		width := 0
		if len(fields) > 1 && strings.HasSuffix(fields[1], "w") {
			if w, err := strconv.Atoi(strings.TrimSuffix(fields[1], "w")); err == nil {
				width = w
			}
		}
		if width >= bestWidth {
			best = fields[0]
			bestWidth = width
		}
	}
	return html.UnescapeString(best)
}

// textAssets returns one image per srcset attribute of an img or source
// tag followed, when videos are collected, by every source tag src
func textAssets(content string, collectVideos bool) []asset {
	var images, videos []asset
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return append(images, videos...)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if !hasAttr || (tag != "img" && tag != "source") {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch {
				case string(key) == "srcset":
					if u := bestCandidate(string(val)); u != "" {
						images = append(images, asset{url: u, kind: models.KindImage})
					}
				case string(key) == "src" && tag == "source" && collectVideos:
					if u := strings.TrimSpace(string(val)); u != "" {
						videos = append(videos, asset{url: u, kind: models.KindVideo})
					}
				}
			}
		}
	}
}
