package config

import (
	"github.com/spf13/viper"

	"github.com/katje/colorizer/gemini"
	"github.com/katje/colorizer/queue"
	"github.com/katje/colorizer/sink"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "katje.db")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.log_theme", "everforest")

	// Queue defaults
	v.SetDefault("queue.concurrency", 1)
	v.SetDefault("queue.min_dispatch_interval_ms", int(queue.DefaultMinDispatchInterval.Milliseconds()))
	v.SetDefault("queue.call_timeout_seconds", int(queue.DefaultCallTimeout.Seconds()))

	// Sink defaults
	v.SetDefault("sink.output_dir", "output")
	v.SetDefault("sink.cooldown_ms", int(sink.DefaultCooldown.Milliseconds()))

	// Generation defaults mirror gemini.DefaultSettings so a bare config
	// file yields a working pipeline.
	def := gemini.DefaultSettings()
	v.SetDefault("generation.text_model", def.TextModel)
	v.SetDefault("generation.image_model", def.ImageModel)
	v.SetDefault("generation.resolution", def.Resolution)
	v.SetDefault("generation.aspect_ratio", def.AspectRatio)
	v.SetDefault("generation.background", def.Background)
	v.SetDefault("generation.fix_errors", def.FixErrors)
	v.SetDefault("generation.default_iterations", def.DefaultIterations)
	v.SetDefault("generation.species", def.Species)
	v.SetDefault("generation.gender", def.Gender)
	v.SetDefault("generation.age", def.Age)
	v.SetDefault("generation.skin_tone", def.SkinTone)
	v.SetDefault("generation.hair_color", def.HairColor)
	v.SetDefault("generation.eye_color", def.EyeColor)
	v.SetDefault("generation.body_mod", def.BodyMod)
	v.SetDefault("generation.clothing", def.Clothing)
	v.SetDefault("generation.footwear", def.Footwear)
	v.SetDefault("generation.held_item", def.HeldItem)
	v.SetDefault("generation.creature", def.Creature)
	v.SetDefault("generation.time_of_day", def.TimeOfDay)
	v.SetDefault("generation.weather", def.Weather)
	v.SetDefault("generation.lighting", def.Lighting)
	v.SetDefault("generation.tech_level", def.TechLevel)
	v.SetDefault("generation.mood", def.Mood)
	v.SetDefault("generation.camera_angle", def.CameraAngle)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("gemini.api_key", "KATJE_GEMINI_API_KEY")
	v.BindEnv("database.path", "KATJE_DATABASE_PATH")
	v.BindEnv("sink.output_dir", "KATJE_OUTPUT_DIR")
}
