// Package library lists the wallpapers a user keeps in the videos directory.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".avi":  true,
	".wmv":  true,
	".m4v":  true,
	".flv":  true,
	".mpg":  true,
	".mpeg": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan returns the absolute paths of the wallpapers directly inside dir,
// sorted by file name. Hidden entries (including the .thumbnails cache)
// and unknown file types are skipped.
func Scan(dir string) ([]string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallpaper directory: %w", err)
	}

	files := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.Type().IsRegular() {
			// follow symlinks to regular files
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil || !info.Mode().IsRegular() {
				log.Debug().Str("name", name).Msg("Skipping non-file entry")
				continue
			}
		}
		if !IsVideo(name) && !IsImage(name) {
			log.Debug().Str("name", name).Msg("Skipping unsupported file")
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})
	return files, nil
}
