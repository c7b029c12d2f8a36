package main

import (
	"context"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog/log"
)

// Returns the thumbnail the desktop's thumbnailer already stored for path,
// or "" if there is none.
func systemThumbnail(path string) string {
	file := gio.NewFileForPath(path)
	info, err := file.QueryInfo(context.Background(), "thumbnail::path", gio.FileQueryInfoNone)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Could not query thumbnail attribute")
		return ""
	}
	return info.AttributeByteString("thumbnail::path")
}

// Sends a desktop notification without blocking the caller.
func notify(title, message string) {
	go func() {
		if err := beeep.Notify(title, message, ""); err != nil {
			log.Warn().Err(err).Msg("Failed to send notification")
		}
	}()
}

var toolMissingOnce sync.Once

// Tells the user once per run that thumbnails cannot be generated.
func notifyToolMissing(err error) {
	toolMissingOnce.Do(func() {
		notify("Hidamari", "Thumbnails need ffmpeg and ffprobe: "+err.Error())
	})
}
