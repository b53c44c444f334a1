package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"inkpost/app/blobstore"
	"inkpost/app/metrics"
	"inkpost/app/models"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// BlobStore is where uploaded files end up.
type BlobStore interface {
	Write(name string, r io.Reader) (int64, error)
	Delete(name string) error
}

// AssetLimit names a kind of upload and caps its size in bytes.
type AssetLimit struct {
	Kind  string
	Bytes int
}

var (
	ThumbnailLimit = AssetLimit{Kind: "thumbnail", Bytes: 2_000_000}
	AvatarLimit    = AssetLimit{Kind: "avatar", Bytes: 500_000}
)

// AssetService owns the lifecycle of uploaded files: storing them under a
// fresh name, swapping them on edit and removing them with their record.
type AssetService struct {
	blobs    BlobStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newToken func() string
}

// NewAssetService creates a new AssetService
func NewAssetService(blobs BlobStore) *AssetService {
	return &AssetService{
		blobs:  blobs,
		logger: slog.Default(),
		newToken: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// WithLogger sets the logger for the asset service
func (s *AssetService) WithLogger(l *slog.Logger) *AssetService {
	tmp := *s
	tmp.logger = l
	return &tmp
}

// WithMetrics makes the service report asset traffic to m.
func (s *AssetService) WithMetrics(m *metrics.Metrics) *AssetService {
	tmp := *s
	tmp.metrics = m
	return &tmp
}

// StoreNewAsset writes upload under a freshly generated name and returns
// that name. Nothing is written when the upload exceeds limit.
func (s *AssetService) StoreNewAsset(ctx context.Context, upload *models.Upload, limit AssetLimit) (string, error) {
	if !upload.Present() {
		return "", validationError("Please choose an image.")
	}
	if upload.Size() > limit.Bytes {
		s.observe("store", "too_large")
		return "", TooLargeError(limit)
	}

	name := assetFilename(upload.Filename, upload.Data, s.newToken())
	n, err := s.blobs.Write(name, bytes.NewReader(upload.Data))
	if err != nil {
		s.observe("store", "error")
		s.logger.ErrorContext(ctx, "asset write failed", "kind", limit.Kind, "name", name, "error", err)
		return "", newError(ErrAssetWriteFailed, "Could not store the uploaded file.", err)
	}

	s.observe("store", "ok")
	if s.metrics != nil {
		s.metrics.AssetWritten(limit.Kind, n)
	}
	s.logger.DebugContext(ctx, "asset stored",
		"kind", limit.Kind,
		"name", name,
		"bytes", n,
		"contentType", mimetype.Detect(upload.Data).String(),
	)
	return name, nil
}

// ReplaceAsset stores upload, lets commit persist the new name, and only
// then removes existing. If commit fails the new file is removed again and
// existing stays referenced. A failure to remove existing is logged and
// otherwise ignored; the old file is left behind.
func (s *AssetService) ReplaceAsset(ctx context.Context, existing string, upload *models.Upload, limit AssetLimit, commit func(newName string) error) (string, error) {
	name, err := s.StoreNewAsset(ctx, upload, limit)
	if err != nil {
		s.observe("replace", "error")
		return "", err
	}

	if commit != nil {
		if err := commit(name); err != nil {
			s.observe("replace", "error")
			if derr := s.DiscardAsset(ctx, name); derr != nil {
				s.logger.WarnContext(ctx, "orphaned asset after failed commit", "name", name, "error", derr)
			}
			return "", err
		}
	}

	if existing != "" && existing != name {
		if err := s.DiscardAsset(ctx, existing); err != nil {
			s.logger.WarnContext(ctx, "previous asset left behind", "name", existing, "error", err)
		}
	}
	s.observe("replace", "ok")
	return name, nil
}

// DiscardAsset deletes filename. A file that is already gone counts as
// deleted, so calling it twice is safe.
func (s *AssetService) DiscardAsset(ctx context.Context, filename string) error {
	if filename == "" {
		return nil
	}
	err := s.blobs.Delete(filename)
	switch {
	case err == nil:
		s.observe("discard", "ok")
		return nil
	case errors.Is(err, blobstore.ErrBlobNotFound):
		s.observe("discard", "missing")
		s.logger.DebugContext(ctx, "asset already gone", "name", filename)
		return nil
	default:
		s.observe("discard", "error")
		s.logger.ErrorContext(ctx, "asset delete failed", "name", filename, "error", err)
		return newError(ErrAssetDeleteFailed, "Failed to delete the image.", err)
	}
}

func (s *AssetService) observe(op, outcome string) {
	if s.metrics != nil {
		s.metrics.AssetOp(op, outcome)
	}
}

// TooLargeError is the error returned for an upload over limit.
func TooLargeError(limit AssetLimit) error {
	return newError(ErrPayloadTooLarge, tooLargeMessage(limit), nil)
}

func tooLargeMessage(limit AssetLimit) string {
	kind := limit.Kind
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	} else {
		kind = "File"
	}
	return fmt.Sprintf("%s is too big. Should be less than %s", kind, humanize.Bytes(uint64(limit.Bytes)))
}

// Caps that keep stem + token + ext well under the 255 byte name limit of
// common filesystems.
const (
	maxStemLength = 64
	maxExtLength  = 16
)

// assetFilename builds stem + token + ext from the client's filename. The
// stem keeps only [A-Za-z0-9_-]; a missing extension is taken from the
// sniffed content type.
func assetFilename(original string, data []byte, token string) string {
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	ext = cleanExt(ext)
	if ext == "" {
		ext = mimetype.Detect(data).Extension()
	}
	return cleanStem(stem) + token + ext
}

func cleanStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			if b.Len() == maxStemLength {
				return b.String()
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cleanExt(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	var b strings.Builder
	for _, r := range ext {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			if b.Len() == maxExtLength {
				break
			}
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}
