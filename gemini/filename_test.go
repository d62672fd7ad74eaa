package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sleepy-cat-on-roof", "sleepy-cat-on-roof"},
		{"  Sleepy Cat On Roof!  ", "sleepy-cat-on-roof"},
		{"cat_01.png", "cat_01png"},
		{"---", FallbackFilename},
		{"", FallbackFilename},
		{"日本語のみ", FallbackFilename},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, ".webp", extensionFor("image/webp"))
	assert.Equal(t, ".png", extensionFor(""), "unknown types default to png")
}

func TestUniqueName(t *testing.T) {
	used := make(map[string]int)

	assert.Equal(t, "cat", uniqueName(used, "cat"))
	assert.Equal(t, "cat-2", uniqueName(used, "cat"))
	assert.Equal(t, "cat-3", uniqueName(used, "cat"))
	assert.Equal(t, "dog", uniqueName(used, "dog"))
}

func TestStripExtension(t *testing.T) {
	assert.Equal(t, "cat", stripExtension("cat.png"))
	assert.Equal(t, "archive.tar", stripExtension("archive.tar.gz"))
	assert.Equal(t, "plain", stripExtension("plain"))
}
