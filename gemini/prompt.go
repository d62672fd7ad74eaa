package gemini

import "strings"

// Base prompts for the two generation modes. Option fragments are appended
// after these.
const (
	colorizeBasePrompt = "Colorize this image realistically. Use oil paint style. It should almost be a photo. Transform line drawings into photo-realistic images; do not retain outline lines, 'melt' them into realistic edges. If the image already has colors or a background, keep them but enhance them to be photo-realistic. Clean up the image: remove text balloons, text, and visual noise. Put more focus on the main characters. Ensure there are no white borders or whitespace on the sides. Do not use a Manga style unless the original is distinctly Manga. Treat this image as standalone. If the input contains multiple panels (like a comic page), crop/focus on and generate ONLY the largest or most significant panel as a single full image. Regarding content: Artistic and natural nudity is acceptable; do not heavily censor or hide it if it fits the artistic context."

	lineArtBasePrompt = "Convert this image into high-quality black and white line art. Remove all shading, gradients, and colors. Focus on clean, crisp outlines. Use shading, hatching, or shades of grey specifically to represent darker skin tones, while keeping the rest as clean line art. Maintain the original composition but strictly as line art. Do not use a Manga style unless the original is distinctly Manga. Clean up text balloons and visual noise. Regarding content: Artistic and natural nudity is acceptable; do not heavily censor or hide it if it fits the artistic context."

	extractCharacterPrompt = "Isolate the main character. Crop the image to focus solely on them. Remove the background completely and replace it with a solid, pure white background (#FFFFFF). Ensure the character is fully visible and not cut off."

	fixErrorsPrompt = "Fix any anatomical errors or distortions in the original image, such as missing fingers, extra digits, distorted limbs, or asymmetric faces."
)

// BuildPrompt assembles the full generation prompt from the settings
// snapshot and the option tables. Unknown or neutral option values contribute
// nothing; the result is never empty.
func BuildPrompt(s Settings, cfg *PromptConfig) string {
	var b strings.Builder

	if s.LineArt {
		b.WriteString(lineArtBasePrompt)
	} else {
		b.WriteString(colorizeBasePrompt)
		if s.ExtractCharacter {
			// Extract-character overrides any background choice.
			appendFragment(&b, extractCharacterPrompt)
		} else {
			appendFragment(&b, lookup(cfg.Backgrounds, s.Background))
		}
	}

	appendFragment(&b, lookup(cfg.Species, s.Species))
	appendFragment(&b, lookup(cfg.Genders, s.Gender))
	appendFragment(&b, lookup(cfg.AgeGroups, s.Age))
	appendFragment(&b, lookup(cfg.SkinTones, s.SkinTone))
	appendFragment(&b, lookup(cfg.HairColors, s.HairColor))
	appendFragment(&b, lookup(cfg.EyeColors, s.EyeColor))
	appendFragment(&b, lookup(cfg.BodyMods, s.BodyMod))

	appendFragment(&b, lookup(cfg.Clothing, s.Clothing))
	appendFragment(&b, lookup(cfg.Footwear, s.Footwear))
	appendFragment(&b, lookup(cfg.Items, s.HeldItem))
	appendFragment(&b, lookup(cfg.Creatures, s.Creature))

	appendFragment(&b, lookup(cfg.TimeOfDay, s.TimeOfDay))
	appendFragment(&b, lookup(cfg.Weather, s.Weather))
	appendFragment(&b, lookup(cfg.Lighting, s.Lighting))

	appendFragment(&b, lookup(cfg.TechLevels, s.TechLevel))
	appendFragment(&b, lookup(cfg.Moods, s.Mood))
	appendFragment(&b, lookup(cfg.CameraAngles, s.CameraAngle))

	if s.FixErrors {
		appendFragment(&b, fixErrorsPrompt)
	}
	if s.CustomPrompt != "" {
		appendFragment(&b, s.CustomPrompt)
	}

	return b.String()
}

func appendFragment(b *strings.Builder, fragment string) {
	if fragment == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(fragment)
}

// modelImageConfig names the image models whose API accepts an ImageConfig
// block. Everything else gets framing folded into the prompt text instead.
var modelImageConfig = map[string]bool{
	"gemini-3-pro-image-preview": true,
}

func supportsImageConfig(model string) bool {
	if v, ok := modelImageConfig[model]; ok {
		return v
	}
	return strings.Contains(model, "pro")
}

// effectiveResolution clamps requested resolutions the API does not accept.
func effectiveResolution(res string) string {
	if res == "8K" {
		return "4K"
	}
	return res
}

// framingPrompt renders aspect-ratio and resolution requests as prompt text
// for models without ImageConfig support.
func framingPrompt(s Settings) string {
	var parts []string
	if !supportsImageConfig(s.ImageModel) && s.AspectRatio != "" && s.AspectRatio != "1:1" {
		parts = append(parts, "Change the aspect ratio to "+s.AspectRatio+".")
	}
	if res := effectiveResolution(s.Resolution); res != "" {
		parts = append(parts, "Render at "+res+" detail.")
	}
	return strings.Join(parts, " ")
}
