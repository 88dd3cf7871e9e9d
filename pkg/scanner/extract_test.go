package scanner

import (
	"testing"

	"artcollector/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestBestCandidate(t *testing.T) {
	tests := []struct {
		name   string
		srcset string
		want   string
	}{
		{"widest wins", "https://c/a.jpg 250w, https://c/b.jpg 1280w, https://c/c.jpg 500w", "https://c/b.jpg"},
		{"last without widths", "https://c/a.jpg 1x, https://c/b.jpg 2x", "https://c/b.jpg"},
		{"single", "https://c/only.gif", "https://c/only.gif"},
		{"entity escaped", "https://c/a.jpg?x=1&amp;y=2 100w", "https://c/a.jpg?x=1&y=2"},
		{"empty", " , ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bestCandidate(tt.srcset))
		})
	}
}

func TestTextAssets(t *testing.T) {
	content := `<img srcset="https://c/1.jpg 100w, https://c/1b.jpg 200w">` +
		`<video><source src="https://c/v.mp4" type="video/mp4"></video>` +
		`<img srcset="https://c/2.png 50w">`

	assets := textAssets(content, true)
	assert.Equal(t, []asset{
		{url: "https://c/1b.jpg", kind: models.KindImage},
		{url: "https://c/2.png", kind: models.KindImage},
		{url: "https://c/v.mp4", kind: models.KindVideo},
	}, assets)

	assert.Len(t, textAssets(content, false), 2)
	assert.Empty(t, textAssets("<p>just words</p>", true))
}

func TestTextAssetsAttributeForms(t *testing.T) {
	content := `<img alt='x' srcset='https://c/q.jpg 300w, https://c/q2.jpg 900w'>` +
		`<img data-srcset="https://c/lazy.jpg 2000w" src="https://c/plain.jpg">` +
		`<picture><source type="image/webp" srcset="https://c/p.webp 400w"/></picture>` +
		`<video><source type="video/mp4" src='https://c/late.mp4?a=1&amp;b=2'></video>`

	assert.Equal(t, []asset{
		{url: "https://c/q2.jpg", kind: models.KindImage},
		{url: "https://c/p.webp", kind: models.KindImage},
		{url: "https://c/late.mp4?a=1&b=2", kind: models.KindVideo},
	}, textAssets(content, true))
}

func TestSelectSources(t *testing.T) {
	followed := []string{"zeta", "alpha", "Beta", "alpha", "gamma"}

	assert.Equal(t, []string{"Beta", "alpha", "gamma", "zeta"}, SelectSources(followed, []string{"all"}, nil))
	assert.Equal(t, []string{"Beta", "alpha", "gamma", "zeta"}, SelectSources(followed, nil, nil))
	assert.Equal(t, []string{"alpha", "zeta"}, SelectSources(followed, []string{"alpha", "zeta", "unfollowed"}, nil))
	assert.Equal(t, []string{"alpha", "zeta"}, SelectSources(followed, []string{"all"}, []string{"beta", "gamma"}))
}
