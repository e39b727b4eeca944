package port

import (
	"context"
	"fmt"
	"strings"
)

// Separator splits an audio file into stems. Implementations write
// <outputRoot>/<baseName>/<stem>.wav and report success only.
type Separator interface {
	Separate(ctx context.Context, audioPath, outputRoot string, stemCount int) error
}

// Downloader fetches remote media into dir and returns the local file plus metadata.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (*DownloadResult, error)
}

// DownloadResult describes a fetched file.
type DownloadResult struct {
	AudioPath string
	Title     string
	Artist    string
	Thumbnail string
}

// Analyzer extracts tempo and duration from an audio file.
type Analyzer interface {
	Duration(ctx context.Context, audioPath string) (float64, error)
	Tempo(ctx context.Context, audioPath string) (float64, error)
}

// MediaTranscoder performs the trim and replicate steps used for derived media.
type MediaTranscoder interface {
	// Trim writes [offset, offset+duration) of input into output, overwriting it.
	Trim(ctx context.Context, input, output string, offset, duration float64) error
	// Replicate writes input played extraPlays+1 times back to back into output.
	Replicate(ctx context.Context, input, output string, extraPlays int) error
}

// ToolError is returned when an external tool exits unsuccessfully.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   []string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Stderr) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Stderr, " | "))
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
