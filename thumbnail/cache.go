// Package thumbnail keeps preview images of wallpapers on disk.
//
// A preview is generated the first time it is asked for and reused for as
// long as the file exists; there is no other invalidation.
package thumbnail

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"hidamari-panel/library"
)

// DefaultWidth is the preview width in pixels.
const DefaultWidth = 128

// Tool probes media and extracts single frames.
type Tool interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
	Frame(ctx context.Context, path string, at time.Duration, out string, width int) error
}

type Cache struct {
	Tool  Tool
	Width int

	// Dir, when set, holds every preview under a hash of the media path.
	// Otherwise previews go to a .thumbnails directory next to the media.
	Dir string

	// At is the offset of the extracted frame. Zero, or an offset past the
	// end of the video, means a third of the duration.
	At time.Duration

	// SystemLookup returns a thumbnail the desktop already made for path,
	// or "" when there is none.
	SystemLookup func(path string) string

	// Jobs bounds the parallelism of GetAll.
	Jobs int

	group singleflight.Group
}

func New(tool Tool) *Cache {
	return &Cache{
		Tool:  tool,
		Width: DefaultWidth,
		Jobs:  runtime.NumCPU(),
	}
}

// Path returns where the preview for media is cached.
func (c *Cache) Path(media string) string {
	if c.Dir != "" {
		abs, err := filepath.Abs(media)
		if err != nil {
			abs = media
		}
		sum := sha1.Sum([]byte(abs))
		return filepath.Join(c.Dir, hex.EncodeToString(sum[:])+".png")
	}
	return filepath.Join(filepath.Dir(media), ".thumbnails", filepath.Base(media)+".png")
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Get returns a preview image for media, generating it if it is not cached.
// Concurrent calls for the same media share a single generation. The
// generation is not tied to the caller that started it: cancelling ctx only
// stops this caller from waiting, and the preview is still cached.
func (c *Cache) Get(ctx context.Context, media string) (string, error) {
	if c.SystemLookup != nil {
		if system := c.SystemLookup(media); system != "" && exists(system) {
			log.Debug().Str("path", media).Str("thumbnail", system).Msg("Using system thumbnail")
			return system, nil
		}
	}

	thumb := c.Path(media)
	if exists(thumb) {
		log.Debug().Str("path", media).Msg("Using cached thumbnail")
		return thumb, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(thumb, func() (any, error) {
		// a flight that just finished may have produced it
		if exists(thumb) {
			return thumb, nil
		}
		log.Info().Str("path", media).Msg("Cached thumbnail not found, creating it")
		if err := c.generate(shared, media, thumb); err != nil {
			return "", err
		}
		return thumb, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Cache) width() int {
	if c.Width > 0 {
		return c.Width
	}
	return DefaultWidth
}

func (c *Cache) generate(ctx context.Context, media, thumb string) error {
	dir := filepath.Dir(thumb)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory %s: %w", dir, err)
	}

	// the preview only appears under its final name once it is complete
	tmp, err := os.CreateTemp(dir, ".partial-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temporary thumbnail: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if library.IsImage(media) {
		err = c.scaleImage(media, tmpPath)
	} else {
		err = c.extractFrame(ctx, media, tmpPath)
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrNoFrame, media)
	}

	if err := os.Rename(tmpPath, thumb); err != nil {
		return fmt.Errorf("failed to store thumbnail %s: %w", thumb, err)
	}

	log.Info().Str("path", media).Str("thumbnail", thumb).Msg("Thumbnail saved")
	return nil
}

func (c *Cache) extractFrame(ctx context.Context, media, out string) error {
	if c.Tool == nil {
		return errors.New("no thumbnail tool configured")
	}

	duration, err := c.Tool.Duration(ctx, media)
	if err != nil {
		return err
	}

	at := c.At
	if at <= 0 || at > duration {
		at = duration / 3
	}

	return c.Tool.Frame(ctx, media, at, out, c.width())
}

func (c *Cache) scaleImage(media, out string) error {
	img, err := imaging.Open(media, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", media, err)
	}

	thumbnail := imaging.Resize(img, c.width(), 0, imaging.Lanczos)
	if err := imaging.Save(thumbnail, out); err != nil {
		return fmt.Errorf("failed to save thumbnail for %s: %w", media, err)
	}
	return nil
}

// GetAll runs Get for every media path with at most Jobs running at once
// and reports each result through fn. fn is called from several
// goroutines. Failures are reported per item; the returned error is only
// the context's.
func (c *Cache) GetAll(ctx context.Context, media []string, fn func(index int, media, thumb string, err error)) error {
	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}

	var g errgroup.Group
	g.SetLimit(jobs)

	for i, path := range media {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			thumb, err := c.Get(ctx, path)
			fn(i, path, thumb, err)
			return nil
		})
	}

	return g.Wait()
}
