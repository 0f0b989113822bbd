// Package media handles uploaded recording files: spooling uploads to disk
// and extracting the audio track from video containers.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// audioExts are container formats the transcription API accepts directly.
var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
}

// Store spools uploads and extracts audio tracks.
type Store struct {
	dir    string
	ffmpeg string
	logger *zap.Logger
}

// NewStore creates a media store rooted at dir. The directory is created on
// first use.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, ffmpeg: "ffmpeg", logger: logger}
}

// SaveUpload writes an uploaded file to the spool directory under a unique
// name, preserving the original extension. Returns the on-disk path.
func (s *Store) SaveUpload(filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Extract returns a path to the audio track of the file at ref. Audio
// uploads pass through untouched; video containers are demuxed with ffmpeg.
func (s *Store) Extract(ctx context.Context, ref string) (string, error) {
	if _, err := os.Stat(ref); err != nil {
		return "", fmt.Errorf("source file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(ref))
	if audioExts[ext] {
		return ref, nil
	}

	out := strings.TrimSuffix(ref, ext) + ".mp3"
	cmd := exec.CommandContext(ctx, s.ffmpeg,
		"-y", "-i", ref,
		"-vn", "-acodec", "libmp3lame", "-q:a", "4",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		s.logger.Error("ffmpeg failed",
			zap.String("src", ref),
			zap.ByteString("output", tail(output, 2048)),
			zap.Error(err))
		return "", fmt.Errorf("extract audio from %s: %w", filepath.Base(ref), err)
	}

	return out, nil
}

// Remove deletes a spooled file. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
