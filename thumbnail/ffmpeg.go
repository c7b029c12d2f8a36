package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoDuration is returned when ffprobe reports no usable duration.
	ErrNoDuration = errors.New("media has no duration")
	// ErrNoFrame is returned when the extractor ran but produced no image.
	ErrNoFrame = errors.New("no frame extracted")
)

// Runner executes external programs. ExecRunner is the real one; tests swap
// in fakes.
type Runner interface {
	// Output runs the command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run runs the command with its I/O discarded.
	Run(ctx context.Context, name string, args ...string) error
}

type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	// nil Stdin/Stdout/Stderr are connected to the null device
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// FFmpeg probes and extracts frames with the ffprobe and ffmpeg binaries.
type FFmpeg struct {
	FFprobeBin string
	FFmpegBin  string
	Runner     Runner
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		FFprobeBin: "ffprobe",
		FFmpegBin:  "ffmpeg",
		Runner:     ExecRunner{},
	}
}

// Duration returns the container duration reported by ffprobe.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	output, err := f.Runner.Output(ctx, f.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", path, err)
	}

	value := strings.TrimSpace(string(output))
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("%w: %s reported %q", ErrNoDuration, path, value)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// Frame writes one frame of path at offset at to out, scaled to width
// pixels wide with the aspect ratio kept.
func (f *FFmpeg) Frame(ctx context.Context, path string, at time.Duration, out string, width int) error {
	args := []string{
		"-y",
		"-i", path,
		"-ss", FormatTimestamp(at),
		"-vf", fmt.Sprintf("scale=%d:-1", width),
		"-vframes", "1",
		"-loglevel", "quiet",
		out,
	}

	log.Debug().Str("path", path).Strs("args", args).Msg("Extracting frame")
	if err := f.Runner.Run(ctx, f.FFmpegBin, args...); err != nil {
		return fmt.Errorf("failed to extract frame from %s: %w", path, err)
	}
	return nil
}

// FormatTimestamp renders d as HH:MM:SS.000, dropping the fractional second.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d.000", total/3600, (total/60)%60, total%60)
}
