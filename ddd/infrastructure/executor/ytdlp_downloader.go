package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stem-service/ddd/domain/port"
	"stem-service/pkg/config"
)

// YtDlpDownloader fetches remote audio with yt-dlp and extracts it to the configured format.
type YtDlpDownloader struct {
	cfg    config.DownloaderConfig
	runner toolRunner
}

var _ port.Downloader = (*YtDlpDownloader)(nil)

type ytDlpInfo struct {
	Title     string      `json:"title"`
	Artist    string      `json:"artist"`
	Uploader  string      `json:"uploader"`
	Channel   string      `json:"channel"`
	Thumbnail string      `json:"thumbnail"`
	Filename  string      `json:"filename"`
	LegacyFN  string      `json:"_filename"`
	Entries   []ytDlpInfo `json:"entries"`
}

func NewYtDlpDownloader(cfg config.DownloaderConfig) *YtDlpDownloader {
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		cfg.BinaryPath = "yt-dlp"
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = "mp3"
	}
	if cfg.AudioQuality == "" {
		cfg.AudioQuality = "192"
	}
	return &YtDlpDownloader{cfg: cfg, runner: newToolRunner(0)}
}

func (d *YtDlpDownloader) Download(ctx context.Context, url, dir string) (*port.DownloadResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("url is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	args := []string{
		"-f", "bestaudio/best",
		"-x", "--audio-format", d.cfg.AudioFormat,
		"--audio-quality", d.cfg.AudioQuality + "K",
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
		"--no-playlist", "--no-warnings", "--quiet",
		"--dump-single-json", "--no-simulate",
		url,
	}
	out, err := d.runner.run(ctx, "yt-dlp", d.cfg.Timeout, d.cfg.BinaryPath, args...)
	if err != nil {
		return nil, err
	}

	var info ytDlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	if len(info.Entries) > 0 {
		info = info.Entries[0]
	}

	name := info.Filename
	if name == "" {
		name = info.LegacyFN
	}
	if name == "" {
		return nil, errors.New("yt-dlp did not report a filename")
	}
	// 后处理会把扩展名换成目标格式
	audioPath := strings.TrimSuffix(name, filepath.Ext(name)) + "." + d.cfg.AudioFormat
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("downloaded audio missing: %w", err)
	}

	artist := info.Artist
	if artist == "" {
		artist = info.Uploader
	}
	if artist == "" {
		artist = info.Channel
	}
	return &port.DownloadResult{
		AudioPath: audioPath,
		Title:     info.Title,
		Artist:    artist,
		Thumbnail: info.Thumbnail,
	}, nil
}
