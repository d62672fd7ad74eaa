package gemini

// Settings is the flat generation-settings record. It is persisted as part of
// the daemon configuration and snapshotted per call; mutating it mid-flight
// never affects a dispatched job.
type Settings struct {
	// Models. TextModel handles filename, story and report calls; ImageModel
	// handles the colorization itself.
	TextModel  string `toml:"text_model" mapstructure:"text_model" json:"textModel"`
	ImageModel string `toml:"image_model" mapstructure:"image_model" json:"imageModel"`

	CustomPrompt string `toml:"custom_prompt" mapstructure:"custom_prompt" json:"customPrompt"`
	Resolution   string `toml:"resolution" mapstructure:"resolution" json:"resolution"`
	AspectRatio  string `toml:"aspect_ratio" mapstructure:"aspect_ratio" json:"aspectRatio"`

	// Mode toggles.
	Background       string `toml:"background" mapstructure:"background" json:"background"`
	LineArt          bool   `toml:"line_art" mapstructure:"line_art" json:"lineArt"`
	ExtractCharacter bool   `toml:"extract_character" mapstructure:"extract_character" json:"extractCharacter"`
	FixErrors        bool   `toml:"fix_errors" mapstructure:"fix_errors" json:"fixErrors"`
	StoryEnabled     bool   `toml:"story_enabled" mapstructure:"story_enabled" json:"storyEnabled"`
	ReportEnabled    bool   `toml:"report_enabled" mapstructure:"report_enabled" json:"reportEnabled"`

	DefaultIterations int `toml:"default_iterations" mapstructure:"default_iterations" json:"defaultIterations"`

	// Subject.
	Species   string `toml:"species" mapstructure:"species" json:"species"`
	Gender    string `toml:"gender" mapstructure:"gender" json:"gender"`
	Age       string `toml:"age" mapstructure:"age" json:"age"`
	SkinTone  string `toml:"skin_tone" mapstructure:"skin_tone" json:"skinTone"`
	HairColor string `toml:"hair_color" mapstructure:"hair_color" json:"hairColor"`
	EyeColor  string `toml:"eye_color" mapstructure:"eye_color" json:"eyeColor"`
	BodyMod   string `toml:"body_mod" mapstructure:"body_mod" json:"bodyMod"`

	// Attire and gear.
	Clothing string `toml:"clothing" mapstructure:"clothing" json:"clothing"`
	Footwear string `toml:"footwear" mapstructure:"footwear" json:"footwear"`
	HeldItem string `toml:"held_item" mapstructure:"held_item" json:"heldItem"`
	Creature string `toml:"creature" mapstructure:"creature" json:"creature"`

	// World and atmosphere.
	TimeOfDay string `toml:"time_of_day" mapstructure:"time_of_day" json:"timeOfDay"`
	Weather   string `toml:"weather" mapstructure:"weather" json:"weather"`
	Lighting  string `toml:"lighting" mapstructure:"lighting" json:"lighting"`

	// Style and camera.
	TechLevel   string `toml:"tech_level" mapstructure:"tech_level" json:"techLevel"`
	Mood        string `toml:"mood" mapstructure:"mood" json:"mood"`
	CameraAngle string `toml:"camera_angle" mapstructure:"camera_angle" json:"cameraAngle"`
}

// DefaultSettings returns the out-of-the-box generation settings. Every
// option field starts at the neutral value its lookup table treats as a
// no-op.
func DefaultSettings() Settings {
	return Settings{
		TextModel:  "gemini-2.5-flash",
		ImageModel: "gemini-2.5-flash-image",

		Resolution:  "4K",
		AspectRatio: "1:1",

		Background:        "Original",
		FixErrors:         true,
		DefaultIterations: 1,

		Species:   "Original",
		Gender:    "Original",
		Age:       "Original",
		SkinTone:  "Original",
		HairColor: "Original",
		EyeColor:  "Original",
		BodyMod:   "Original",

		Clothing: "as-is",
		Footwear: "Original",
		HeldItem: "Original",
		Creature: "Original",

		TimeOfDay: "Original",
		Weather:   "Original",
		Lighting:  "Original",

		TechLevel:   "Original",
		Mood:        "Original",
		CameraAngle: "Original",
	}
}

// StoryActive reports whether the chained story generation applies. Line-art
// output has no colorized subject to narrate, so line-art mode suppresses the
// story even when the toggle is on.
func (s Settings) StoryActive() bool {
	return s.StoryEnabled && !s.LineArt
}

// Normalize fills zero-valued fields from the defaults so records loaded
// from older config files stay usable.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.TextModel == "" {
		s.TextModel = def.TextModel
	}
	if s.ImageModel == "" {
		s.ImageModel = def.ImageModel
	}
	if s.Resolution == "" {
		s.Resolution = def.Resolution
	}
	if s.AspectRatio == "" {
		s.AspectRatio = def.AspectRatio
	}
	if s.Background == "" {
		s.Background = def.Background
	}
	if s.DefaultIterations < 1 {
		s.DefaultIterations = 1
	}
	for _, f := range []*string{
		&s.Species, &s.Gender, &s.Age, &s.SkinTone, &s.HairColor,
		&s.EyeColor, &s.BodyMod, &s.Footwear, &s.HeldItem, &s.Creature,
		&s.TimeOfDay, &s.Weather, &s.Lighting, &s.TechLevel, &s.Mood,
		&s.CameraAngle,
	} {
		if *f == "" {
			*f = "Original"
		}
	}
	if s.Clothing == "" {
		s.Clothing = "as-is"
	}
	return s
}
