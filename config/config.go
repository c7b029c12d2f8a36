package config

import (
	"math"

	"github.com/pelletier/go-toml/v2"
)

// MaxBlurRadius is the top of the blur slider. Larger radii written by
// other tools are kept as they are.
const MaxBlurRadius = 50

const (
	DefaultDetectMaximized = true
	DefaultBlurRadius      = 5
	DefaultAudioVolume     = 1.0
)

// Config is the record shared with the wallpaper player.
type Config struct {
	VideoPath                 string  `toml:"video_path"                   comment:"The video or image currently used as wallpaper"`
	StaticWallpaper           bool    `toml:"static_wallpaper"             comment:"Show a still frame instead of playing the video"`
	DetectMaximized           bool    `toml:"detect_maximized"             comment:"Pause playback while a window is maximized"`
	MuteAudio                 bool    `toml:"mute_audio"                   comment:"Mute the wallpaper's audio track"`
	StaticWallpaperBlurRadius float64 `toml:"static_wallpaper_blur_radius" comment:"Blur radius applied to the static wallpaper"`
	AudioVolume               float64 `toml:"audio_volume"                 comment:"Volume as a fraction, 0.0-1.0"`
}

func NewDefaultConfig() Config {
	return Config{
		VideoPath:                 "",
		StaticWallpaper:           false,
		DetectMaximized:           DefaultDetectMaximized,
		MuteAudio:                 false,
		StaticWallpaperBlurRadius: DefaultBlurRadius,
		AudioVolume:               DefaultAudioVolume,
	}
}

// Replaces NaN with defaults, clamps the volume fraction and rejects
// negative blur radii.
func (c *Config) validate() {
	if math.IsNaN(c.AudioVolume) {
		c.AudioVolume = DefaultAudioVolume
	}
	c.AudioVolume = math.Min(math.Max(c.AudioVolume, 0), 1)

	if math.IsNaN(c.StaticWallpaperBlurRadius) {
		c.StaticWallpaperBlurRadius = DefaultBlurRadius
	}
	c.StaticWallpaperBlurRadius = math.Max(c.StaticWallpaperBlurRadius, 0)
}

// decode fills a Config from TOML, starting from defaults so that missing
// keys keep their default value.
func decode(content []byte) (Config, map[string]any, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, nil, err
	}

	raw := map[string]any{}
	if err := toml.Unmarshal(content, &raw); err != nil {
		return Config{}, nil, err
	}

	cfg.validate()
	return cfg, raw, nil
}

// encode writes cfg over raw, keeping every key the player owns that
// Config does not model.
func encode(cfg Config, raw map[string]any) ([]byte, error) {
	if raw == nil {
		return toml.Marshal(cfg)
	}

	merged := make(map[string]any, len(raw)+6)
	for k, v := range raw {
		merged[k] = v
	}
	merged["video_path"] = cfg.VideoPath
	merged["static_wallpaper"] = cfg.StaticWallpaper
	merged["detect_maximized"] = cfg.DetectMaximized
	merged["mute_audio"] = cfg.MuteAudio
	merged["static_wallpaper_blur_radius"] = cfg.StaticWallpaperBlurRadius
	merged["audio_volume"] = cfg.AudioVolume

	return toml.Marshal(merged)
}

// VolumePercent is AudioVolume on the 0-100 scale the volume slider uses.
func (c Config) VolumePercent() float64 {
	return c.AudioVolume * 100
}

// SetVolumePercent stores a 0-100 slider value as a fraction.
func (c *Config) SetVolumePercent(percent float64) {
	c.AudioVolume = math.Min(math.Max(percent/100, 0), 1)
}

// BlurSliderMax is the upper bound the blur slider needs to show the
// current radius without truncating it.
func (c Config) BlurSliderMax() float64 {
	return math.Max(MaxBlurRadius, c.StaticWallpaperBlurRadius)
}
