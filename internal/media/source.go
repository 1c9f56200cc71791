package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/services"
)

// Source describes a resolved input video ready for the pipeline.
type Source struct {
	Path            string  `json:"path"`
	Identity        string  `json:"identity"`
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	AudioStreams    int     `json:"audio_streams"`
	SizeBytes       int64   `json:"size_bytes"`
}

// Base returns the source file name without its extension, used for naming
// run directories and rendered clips.
func (s Source) Base() string {
	name := filepath.Base(s.Path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Resolver turns a user-supplied reference into a usable Source. Remote
// resolvers may download the reference before probing it.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (Source, error)
}

// LocalResolver resolves references that are paths on the local filesystem.
type LocalResolver struct {
	FFprobeBinary string
}

// Resolve stats and probes the referenced file. Missing files, directories,
// and containers without a video stream are media errors.
func (r LocalResolver) Resolve(ctx context.Context, ref string) (Source, error) {
	path, err := filepath.Abs(strings.TrimSpace(ref))
	if err != nil {
		return Source{}, services.Wrap(services.ErrMedia, "", "resolve", fmt.Sprintf("resolve path %q", ref), err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, services.Wrap(services.ErrMedia, "", "resolve", fmt.Sprintf("stat %q", path), err)
	}
	if info.IsDir() {
		return Source{}, services.Wrap(services.ErrMedia, "", "resolve", fmt.Sprintf("%q is a directory", path), nil)
	}

	probe, err := Probe(ctx, r.FFprobeBinary, path)
	if err != nil {
		return Source{}, err
	}
	video, ok := probe.PrimaryVideo()
	if !ok {
		return Source{}, services.Wrap(services.ErrMedia, "", "resolve", fmt.Sprintf("%q has no video stream", path), nil)
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return Source{}, services.Wrap(services.ErrMedia, "", "resolve", fmt.Sprintf("%q reports no duration", path), nil)
	}

	src := Source{
		Path:            path,
		DurationSeconds: duration,
		Width:           video.Width,
		Height:          video.Height,
		AudioStreams:    probe.AudioStreamCount(),
		SizeBytes:       info.Size(),
	}
	src.Identity = identity(path, info.Size(), info.ModTime().UnixNano())
	return src, nil
}

// identity derives a stable digest for cache keys. Size and mtime stand in
// for hashing the whole file, which can be tens of gigabytes.
func identity(path string, size, mtimeNanos int64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", path, size, mtimeNanos))
	return hex.EncodeToString(sum[:])
}
