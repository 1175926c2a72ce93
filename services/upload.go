package services

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lukewen/studyblog/config"
	"github.com/lukewen/studyblog/models"
)

// PublicUploadPrefix is the URL namespace media files are served under.
const PublicUploadPrefix = "/static/uploads"

// Upload describes one stored media file.
type Upload struct {
	URL  string // public URL under PublicUploadPrefix
	Kind string // models.MediaKindImage or models.MediaKindVideo
	path string // filesystem location
}

// UploadService validates and stores uploaded media files. Classification is
// by the substring after the final dot, compared case-insensitively against
// the configured image and video extension sets.
type UploadService struct {
	dir       string
	maxBytes  int64
	imageExts map[string]struct{}
	videoExts map[string]struct{}
}

// NewUploadService builds an UploadService from configuration.
func NewUploadService(cfg config.AppConfig) *UploadService {
	return &UploadService{
		dir:       cfg.UploadDir,
		maxBytes:  int64(cfg.MaxUploadMB) * 1024 * 1024,
		imageExts: extSet(cfg.ImageExts),
		videoExts: extSet(cfg.VideoExts),
	}
}

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = struct{}{}
	}
	return set
}

// Classify returns the media kind for a filename, or ErrUnsupportedFile when
// its extension belongs to neither configured set.
func (s *UploadService) Classify(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "", ErrUnsupportedFile
	}
	if _, ok := s.imageExts[ext]; ok {
		return models.MediaKindImage, nil
	}
	if _, ok := s.videoExts[ext]; ok {
		return models.MediaKindVideo, nil
	}
	return "", ErrUnsupportedFile
}

// Save writes one uploaded file to durable storage under a collision-free
// random name and returns its public URL and kind. The write has no rollback;
// callers must Remove the upload if the surrounding persistence step fails.
func (s *UploadService) Save(filename string, r io.Reader) (Upload, error) {
	kind, err := s.Classify(filename)
	if err != nil {
		return Upload{}, err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	now := time.Now()
	subdir := filepath.Join(now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(filepath.Join(s.dir, subdir), 0o755); err != nil {
		return Upload{}, err
	}

	name := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	dst := filepath.Join(s.dir, subdir, name)

	out, err := os.Create(dst)
	if err != nil {
		return Upload{}, err
	}
	defer out.Close()

	written, err := io.Copy(out, &io.LimitedReader{R: r, N: s.maxBytes + 1})
	if err != nil {
		_ = os.Remove(dst)
		return Upload{}, err
	}
	if written > s.maxBytes {
		_ = os.Remove(dst)
		return Upload{}, ErrFileTooLarge
	}

	url := path.Join(PublicUploadPrefix, now.Format("2006"), now.Format("01"), name)
	return Upload{URL: url, Kind: kind, path: dst}, nil
}

// Remove deletes a stored upload, compensating a failed persistence step.
func (s *UploadService) Remove(u Upload) {
	if u.path != "" {
		_ = os.Remove(u.path)
	}
}

// RemoveURL best-effort deletes the file behind a public media URL. URLs
// outside the upload namespace (e.g. absolute remote URLs) are skipped.
func (s *UploadService) RemoveURL(url string) {
	rel, found := strings.CutPrefix(url, PublicUploadPrefix+"/")
	if !found || strings.Contains(rel, "..") {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
}
