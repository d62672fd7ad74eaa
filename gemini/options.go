package gemini

import (
	_ "embed"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/katje/colorizer/errors"
)

//go:embed options.toml
var embeddedOptions []byte

// PromptOption is one selectable value in a prompt table. An empty Prompt is
// the neutral choice and contributes nothing.
type PromptOption struct {
	Value  string `toml:"value" json:"value"`
	Label  string `toml:"label" json:"label"`
	Prompt string `toml:"prompt" json:"prompt"`
}

// PromptConfig holds the data-driven prompt tables. The prompt assembly walks
// these by settings value; adding an option is a data change, not a code
// change.
type PromptConfig struct {
	Species      []PromptOption `toml:"species" json:"species"`
	Genders      []PromptOption `toml:"genders" json:"genders"`
	AgeGroups    []PromptOption `toml:"age_groups" json:"ageGroups"`
	SkinTones    []PromptOption `toml:"skin_tones" json:"skinTones"`
	HairColors   []PromptOption `toml:"hair_colors" json:"hairColors"`
	EyeColors    []PromptOption `toml:"eye_colors" json:"eyeColors"`
	BodyMods     []PromptOption `toml:"body_mods" json:"bodyMods"`
	Clothing     []PromptOption `toml:"clothing" json:"clothing"`
	Footwear     []PromptOption `toml:"footwear" json:"footwear"`
	Items        []PromptOption `toml:"items" json:"items"`
	Creatures    []PromptOption `toml:"creatures" json:"creatures"`
	TimeOfDay    []PromptOption `toml:"time_of_day" json:"timeOfDay"`
	Weather      []PromptOption `toml:"weather" json:"weather"`
	Lighting     []PromptOption `toml:"lighting" json:"lighting"`
	TechLevels   []PromptOption `toml:"tech_levels" json:"techLevels"`
	Moods        []PromptOption `toml:"moods" json:"moods"`
	CameraAngles []PromptOption `toml:"camera_angles" json:"cameraAngles"`
	Backgrounds  []PromptOption `toml:"backgrounds" json:"backgrounds"`
	AspectRatios []PromptOption `toml:"aspect_ratios" json:"aspectRatios"`
}

var (
	defaultConfigOnce sync.Once
	defaultConfig     *PromptConfig
)

// DefaultPromptConfig parses the embedded tables once. The embedded data is
// validated by tests, so a parse failure here is a build defect; it yields an
// empty config rather than a panic.
func DefaultPromptConfig() *PromptConfig {
	defaultConfigOnce.Do(func() {
		cfg, err := ParsePromptConfig(embeddedOptions)
		if err != nil {
			cfg = &PromptConfig{}
		}
		defaultConfig = cfg
	})
	return defaultConfig
}

// ParsePromptConfig decodes prompt tables from TOML.
func ParsePromptConfig(data []byte) (*PromptConfig, error) {
	var cfg PromptConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse prompt options")
	}
	return &cfg, nil
}

// lookup returns the prompt fragment for value, or "" when the value is
// unknown or neutral. Unknown values are tolerated so stale settings never
// break generation.
func lookup(options []PromptOption, value string) string {
	for _, opt := range options {
		if opt.Value == value {
			return opt.Prompt
		}
	}
	return ""
}
