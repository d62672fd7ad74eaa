package gemini

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptConfigParses(t *testing.T) {
	cfg := DefaultPromptConfig()
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Species)
	assert.NotEmpty(t, cfg.Backgrounds)
	assert.NotEmpty(t, cfg.Clothing)
	assert.NotEmpty(t, cfg.TechLevels)
	assert.NotEmpty(t, cfg.AspectRatios)

	// Every table leads with a neutral choice.
	assert.Equal(t, "", lookup(cfg.Species, "Original"))
	assert.Equal(t, "", lookup(cfg.Clothing, "as-is"))
	assert.Equal(t, "", lookup(cfg.Backgrounds, "Original"))
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt := BuildPrompt(DefaultSettings(), DefaultPromptConfig())

	assert.True(t, strings.HasPrefix(prompt, "Colorize this image realistically."))
	assert.Contains(t, prompt, "Fix any anatomical errors")
	assert.NotContains(t, prompt, "Transform the character")
	assert.NotContains(t, prompt, "Replace the entire background")
}

func TestBuildPromptLineArt(t *testing.T) {
	s := DefaultSettings()
	s.LineArt = true
	s.Background = "Beach"

	prompt := BuildPrompt(s, DefaultPromptConfig())

	assert.True(t, strings.HasPrefix(prompt, "Convert this image into high-quality black and white line art."))
	assert.NotContains(t, prompt, "Replace the entire background",
		"line art mode ignores the background choice")
}

func TestBuildPromptExtractCharacter(t *testing.T) {
	s := DefaultSettings()
	s.ExtractCharacter = true
	s.Background = "Beach"

	prompt := BuildPrompt(s, DefaultPromptConfig())

	assert.Contains(t, prompt, "Isolate the main character.")
	assert.NotContains(t, prompt, "Beach",
		"extract-character overrides the background choice")
}

func TestBuildPromptOptionLookup(t *testing.T) {
	s := DefaultSettings()
	s.Species = "Elf"
	s.Background = "Forest"
	s.Clothing = "more"

	prompt := BuildPrompt(s, DefaultPromptConfig())

	assert.Contains(t, prompt, "Transform the character into an Elf.")
	assert.Contains(t, prompt, "realistic depiction of a Forest")
	assert.Contains(t, prompt, "Add more layers of clothing.")
}

func TestBuildPromptUnknownValueIsNoop(t *testing.T) {
	base := BuildPrompt(DefaultSettings(), DefaultPromptConfig())

	s := DefaultSettings()
	s.Species = "Tribble"
	withUnknown := BuildPrompt(s, DefaultPromptConfig())

	assert.Equal(t, base, withUnknown, "stale settings values never break assembly")
}

func TestBuildPromptCustomSuffix(t *testing.T) {
	s := DefaultSettings()
	s.CustomPrompt = "Make the lighting warmer."

	prompt := BuildPrompt(s, DefaultPromptConfig())

	assert.True(t, strings.HasSuffix(prompt, "Make the lighting warmer."))
}

func TestFramingPrompt(t *testing.T) {
	t.Run("aspect ratio folded into prompt for non-pro models", func(t *testing.T) {
		s := DefaultSettings()
		s.ImageModel = "gemini-2.5-flash-image"
		s.AspectRatio = "3:4"

		assert.Contains(t, framingPrompt(s), "Change the aspect ratio to 3:4.")
	})

	t.Run("pro models carry aspect ratio in config instead", func(t *testing.T) {
		s := DefaultSettings()
		s.ImageModel = "gemini-3-pro-image-preview"
		s.AspectRatio = "3:4"

		assert.NotContains(t, framingPrompt(s), "aspect ratio")
	})

	t.Run("8K clamps to 4K", func(t *testing.T) {
		s := DefaultSettings()
		s.Resolution = "8K"

		assert.Contains(t, framingPrompt(s), "Render at 4K detail.")
	})
}
