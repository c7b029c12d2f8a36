package main

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"hidamari-panel/autostart"
	"hidamari-panel/config"
	"hidamari-panel/player"
	"hidamari-panel/thumbnail"
)

const applicationID = "io.github.jeffshee.hidamari.gui"

func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath(), "Shared configuration file")
	videosDir := pflag.String("videos", config.VideosDir(), "Folder the wallpapers are picked from")
	thumbnailDir := pflag.String("thumbnail-dir", "", "Keep thumbnails in this folder instead of a .thumbnails folder next to each video")
	ffmpegBin := pflag.String("ffmpeg", "ffmpeg", "ffmpeg binary used to extract thumbnails")
	ffprobeBin := pflag.String("ffprobe", "ffprobe", "ffprobe binary used to read video durations")
	playerCommand := pflag.String("player", "hidamari", "Command that starts the wallpaper player")
	jobs := pflag.IntP("jobs", "j", runtime.NumCPU(), "Thumbnails generated in parallel")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	pflag.Parse()

	setupLogging(*debug)

	store, err := config.Open(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open config")
	}

	videos, err := config.EnsureDir(*videosDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure videos directory")
	}
	log.Info().Str("path", videos).Msg("Videos directory ensured")

	tool := thumbnail.NewFFmpeg()
	tool.FFmpegBin = *ffmpegBin
	tool.FFprobeBin = *ffprobeBin

	cache := thumbnail.New(tool)
	cache.Jobs = *jobs
	cache.SystemLookup = systemThumbnail
	if *thumbnailDir != "" {
		dir, err := config.EnsureDir(*thumbnailDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure thumbnail directory")
		}
		cache.Dir = dir
	}

	launcher := autostart.New()
	wallpaperPlayer := player.New(strings.Fields(*playerCommand)...)
	launcher.Exec = strings.Join(wallpaperPlayer.Command, " ") + " -p 1"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	panel := NewPanel(ctx, store, cache, launcher, wallpaperPlayer, videos)

	app := gtk.NewApplication(applicationID, gio.ApplicationFlagsNone)
	app.ConnectActivate(func() { panel.activate(app) })
	app.ConnectShutdown(func() { panel.shutdown() })

	// our own flags were consumed by pflag; GApplication rejects unknown ones
	code := app.Run(append([]string{os.Args[0]}, pflag.Args()...))
	cancel()
	os.Exit(code)
}
