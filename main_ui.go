package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gdkpixbuf/v2"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/rs/zerolog/log"

	"hidamari-panel/autostart"
	"hidamari-panel/config"
	"hidamari-panel/library"
	"hidamari-panel/player"
	"hidamari-panel/thumbnail"
)

//go:embed panel.ui
var panelUI string

const iconSize = 128

// Panel is the control panel window and the state behind it. All fields
// are owned by the GTK main thread; goroutines hand results back with
// glib.IdleAdd.
type Panel struct {
	ctx       context.Context
	store     *config.Store
	cache     *thumbnail.Cache
	autostart *autostart.Launcher
	player    *player.Player
	videosDir string

	window           *gtk.ApplicationWindow
	iconView         *gtk.FlowBox
	volume           *gtk.Scale
	volumeAdjustment *gtk.Adjustment
	autostartToggle  *gtk.CheckButton
	muteAudio        *gtk.CheckButton
	detectMaximized  *gtk.CheckButton
	staticWallpaper  *gtk.CheckButton
	blurRadius       *gtk.Scale
	blurAdjustment   *gtk.Adjustment
	preview          *gtk.Picture
	status           *gtk.Label
	apply            *gtk.Button

	files  []string
	thumbs []string

	// bumped on every grid reload and preview request so late results
	// from an older one are dropped
	generation        int
	previewGeneration int
	cancelLoad        context.CancelFunc

	watcher *config.Watcher
}

func NewPanel(ctx context.Context, store *config.Store, cache *thumbnail.Cache, launcher *autostart.Launcher, p *player.Player, videosDir string) *Panel {
	return &Panel{
		ctx:       ctx,
		store:     store,
		cache:     cache,
		autostart: launcher,
		player:    p,
		videosDir: videosDir,
	}
}

func object[T any](builder *gtk.Builder, id string) T {
	obj := builder.GetObject(id)
	if obj == nil {
		log.Fatal().Str("id", id).Msg("UI description is missing an object")
	}
	widget, ok := obj.Cast().(T)
	if !ok {
		log.Fatal().Str("id", id).Msgf("UI object has type %T", obj.Cast())
	}
	return widget
}

func (p *Panel) activate(app *gtk.Application) {
	if p.window != nil {
		p.window.Present()
		return
	}

	builder := gtk.NewBuilderFromString(panelUI)

	p.window = object[*gtk.ApplicationWindow](builder, "window")
	p.iconView = object[*gtk.FlowBox](builder, "icon_view")
	p.volume = object[*gtk.Scale](builder, "volume")
	p.volumeAdjustment = object[*gtk.Adjustment](builder, "volume_adjustment")
	p.autostartToggle = object[*gtk.CheckButton](builder, "autostart")
	p.muteAudio = object[*gtk.CheckButton](builder, "mute_audio")
	p.detectMaximized = object[*gtk.CheckButton](builder, "detect_maximized")
	p.staticWallpaper = object[*gtk.CheckButton](builder, "static_wallpaper")
	p.blurRadius = object[*gtk.Scale](builder, "blur_radius")
	p.blurAdjustment = object[*gtk.Adjustment](builder, "blur_adjustment")
	p.preview = object[*gtk.Picture](builder, "preview")
	p.status = object[*gtk.Label](builder, "status")
	p.apply = object[*gtk.Button](builder, "apply")

	p.blurAdjustment.SetUpper(config.MaxBlurRadius)

	p.window.SetApplication(app)

	p.reloadIconView()
	p.reloadWidgets()

	p.apply.ConnectClicked(p.onApplyClicked)
	object[*gtk.Button](builder, "cancel").ConnectClicked(p.onCancelClicked)
	object[*gtk.Button](builder, "refresh").ConnectClicked(p.onRefreshClicked)
	object[*gtk.Button](builder, "restart").ConnectClicked(p.onRestartClicked)

	for _, toggle := range []*gtk.CheckButton{p.autostartToggle, p.muteAudio, p.detectMaximized, p.staticWallpaper} {
		toggle.ConnectToggled(p.onValueChanged)
	}
	p.volumeAdjustment.ConnectValueChanged(p.onValueChanged)
	p.blurAdjustment.ConnectValueChanged(p.onValueChanged)
	p.iconView.ConnectSelectedChildrenChanged(p.onValueChanged)

	watcher, err := p.store.Watch(p.ctx, p.onConfigModified)
	if err != nil {
		log.Error().Err(err).Msg("Failed to watch config; external changes will not be shown")
	} else {
		p.watcher = watcher
	}

	p.window.SetVisible(true)

	go func() {
		running, err := p.player.Running()
		if err != nil {
			log.Warn().Err(err).Msg("Could not check whether the player is running")
			return
		}
		if !running {
			glib.IdleAdd(func() {
				p.setStatus("The wallpaper player is not running. Press Restart Player to start it.")
			})
		}
	}()
}

func (p *Panel) shutdown() {
	if p.cancelLoad != nil {
		p.cancelLoad()
	}
	if p.watcher != nil {
		p.watcher.Close()
	}
}

// Called from the watcher goroutine.
func (p *Panel) onConfigModified(config.Config) {
	glib.IdleAdd(func() {
		log.Info().Msg("Reloading panel from modified config")
		p.reloadWidgets()
	})
}

func (p *Panel) onApplyClicked() {
	rc := p.store.Config()

	if i := p.selectedIndex(); i >= 0 {
		rc.VideoPath = p.files[i]
	}

	if err := p.autostart.Set(p.autostartToggle.Active()); err != nil {
		p.reportError("Failed to update autostart", err)
	}

	rc.StaticWallpaper = p.staticWallpaper.Active()
	rc.DetectMaximized = p.detectMaximized.Active()
	rc.MuteAudio = p.muteAudio.Active()
	rc.StaticWallpaperBlurRadius = p.blurAdjustment.Value()
	rc.SetVolumePercent(p.volumeAdjustment.Value())

	if err := p.store.Save(rc); err != nil {
		p.reportError("Failed to save settings", err)
		return
	}

	p.apply.SetSensitive(false)
	p.setStatus("Settings applied.")
}

func (p *Panel) onCancelClicked() {
	p.reloadWidgets()
}

func (p *Panel) onRefreshClicked() {
	log.Info().Msg("Refreshing wallpapers...")
	p.reloadIconView()
}

func (p *Panel) onRestartClicked() {
	log.Info().Msg("Restarting player...")
	p.setStatus("Restarting player...")
	go func() {
		pid, err := p.player.Restart()
		glib.IdleAdd(func() {
			if err != nil {
				p.reportError("Failed to restart player", err)
				return
			}
			p.setStatus(fmt.Sprintf("Player restarted (PID %d).", pid))
		})
	}()
}

func (p *Panel) onValueChanged() {
	p.updateSensitivity()
	p.apply.SetSensitive(true)
	p.updatePreview()
}

func (p *Panel) updateSensitivity() {
	p.volume.SetSensitive(!p.muteAudio.Active())
	p.blurRadius.SetSensitive(p.staticWallpaper.Active())
}

// Sets every preference widget from the stored config. The programmatic
// changes fire the value-changed handlers, so apply is reset at the end.
func (p *Panel) reloadWidgets() {
	rc := p.store.Config()

	p.autostartToggle.SetActive(p.autostart.Enabled())
	p.staticWallpaper.SetActive(rc.StaticWallpaper)
	p.detectMaximized.SetActive(rc.DetectMaximized)
	p.muteAudio.SetActive(rc.MuteAudio)
	p.volumeAdjustment.SetValue(rc.VolumePercent())
	p.blurAdjustment.SetUpper(rc.BlurSliderMax())
	p.blurAdjustment.SetValue(rc.StaticWallpaperBlurRadius)

	p.iconView.UnselectAll()

	p.updateSensitivity()
	p.apply.SetSensitive(false)
	p.updatePreview()
}

func (p *Panel) selectedIndex() int {
	selected := p.iconView.SelectedChildren()
	if len(selected) == 0 {
		return -1
	}
	i := selected[0].Index()
	if i < 0 || i >= len(p.files) {
		return -1
	}
	return i
}

// Rescans the videos folder and rebuilds the grid. Thumbnails are made off
// the main thread and filled in as they arrive.
func (p *Panel) reloadIconView() {
	if p.cancelLoad != nil {
		p.cancelLoad()
	}
	p.generation++
	generation := p.generation

	p.iconView.RemoveAll()
	p.files = nil
	p.thumbs = nil

	files, err := library.Scan(p.videosDir)
	if err != nil {
		p.reportError("Failed to read wallpaper folder", err)
		return
	}
	if len(files) == 0 {
		p.setStatus(fmt.Sprintf("No wallpapers found in %s", p.videosDir))
		return
	}

	p.files = files
	p.thumbs = make([]string, len(files))
	images := make([]*gtk.Image, len(files))

	for i, file := range files {
		icon := "video-x-generic-symbolic"
		if library.IsImage(file) {
			icon = "image-x-generic-symbolic"
		}

		image := gtk.NewImageFromIconName(icon)
		image.SetPixelSize(iconSize)

		label := gtk.NewLabel(filepath.Base(file))
		label.SetWrap(true)
		label.SetMaxWidthChars(16)
		label.SetJustify(gtk.JustifyCenter)

		item := gtk.NewBox(gtk.OrientationVertical, 4)
		item.SetTooltipText(file)
		item.Append(image)
		item.Append(label)

		p.iconView.Append(item)
		images[i] = image
	}

	p.setStatus(fmt.Sprintf("%d wallpapers in %s", len(files), p.videosDir))

	ctx, cancel := context.WithCancel(p.ctx)
	p.cancelLoad = cancel

	go func() {
		err := p.cache.GetAll(ctx, files, func(i int, media, thumb string, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				log.Error().Err(err).Str("path", media).Msg("Failed to create thumbnail")
				if errors.Is(err, exec.ErrNotFound) {
					notifyToolMissing(err)
				}
				return
			}

			pixbuf, err := gdkpixbuf.NewPixbufFromFileAtScale(thumb, iconSize, iconSize, true)
			if err != nil {
				log.Error().Err(err).Str("path", thumb).Msg("Error creating GdkPixbuf")
				return
			}
			texture := gdk.NewTextureForPixbuf(pixbuf)

			glib.IdleAdd(func() {
				if generation != p.generation {
					return
				}
				p.thumbs[i] = thumb
				images[i].SetFromPaintable(texture)
				images[i].SetPixelSize(iconSize)
				if p.previewFile() == media {
					p.updatePreview()
				}
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Thumbnail loading stopped")
		}
	}()
}

// The wallpaper the preview shows: the grid selection, else the configured one.
func (p *Panel) previewFile() string {
	if i := p.selectedIndex(); i >= 0 {
		return p.files[i]
	}
	return p.store.Config().VideoPath
}

func (p *Panel) previewThumbnail() string {
	file := p.previewFile()
	for i, f := range p.files {
		if f == file {
			return p.thumbs[i]
		}
	}
	return ""
}

// Shows the preview thumbnail, blurred like the player would when static
// mode is on.
func (p *Panel) updatePreview() {
	p.previewGeneration++
	generation := p.previewGeneration

	thumb := p.previewThumbnail()
	if thumb == "" {
		p.preview.SetPaintable(nil)
		return
	}

	radius := 0.0
	if p.staticWallpaper.Active() {
		radius = p.blurAdjustment.Value()
	}
	width, _ := p.preview.SizeRequest()

	go func() {
		img, err := thumbnail.BlurPreview(thumb, radius, width)
		if err != nil {
			log.Error().Err(err).Str("path", thumb).Msg("Failed to render preview")
			return
		}

		var buf bytes.Buffer
		if err := thumbnail.EncodePNG(&buf, img); err != nil {
			log.Error().Err(err).Msg("Failed to encode preview")
			return
		}

		texture, err := gdk.NewTextureFromBytes(glib.NewBytes(buf.Bytes()))
		if err != nil {
			log.Error().Err(err).Msg("Failed to load preview texture")
			return
		}

		glib.IdleAdd(func() {
			if generation != p.previewGeneration {
				return
			}
			p.preview.SetPaintable(texture)
		})
	}()
}

// Updates the status label (top of the window) with the given message.
func (p *Panel) setStatus(message string) {
	if p.status != nil {
		p.status.SetText(message)
	}
}

func (p *Panel) reportError(summary string, err error) {
	log.Error().Err(err).Msg(summary)
	p.setStatus(summary + ".")
	notify("Hidamari", summary+": "+err.Error())
}
