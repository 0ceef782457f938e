package services

import (
	"Ashray/apperr"
	"Ashray/storage"
	"Ashray/util"
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UploadTicket lets a client PUT a file straight into the bucket.
type UploadTicket struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	ExpiresIn   int    `json:"expiresIn"`
}

type UploadService struct {
	objects ObjectStore
	log     *zap.Logger
	now     func() time.Time
}

func NewUploadService(objects ObjectStore, log *zap.Logger) *UploadService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadService{objects: objects, log: log, now: time.Now}
}

/*
 * A file name with a jpg, jpeg, png or pdf extension is required
 * The content type defaults to the one implied by the extension
 * Key is prescriptions/<millis>-<sanitized name>; the URL is locked to the content type
 */
func (s *UploadService) UploadURL(ctx context.Context, file, contentType string) (*UploadTicket, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return nil, apperr.Validation(util.FILENAME_REQUIRED)
	}
	if !storage.AllowedExt(file) {
		return nil, apperr.Validation(util.INVALID_FILE_TYPE)
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = storage.ContentTypeFor(file)
	}

	if s.objects == nil {
		return nil, apperr.Wrap(apperr.KindInternal, util.STORAGE_UNAVAILABLE,
			&storage.Error{Op: "presign", Code: storage.CodeNotConfigured, Message: "object storage is not configured"})
	}

	key := storage.ObjectKey(storage.PrescriptionFolder, storage.SanitizeFilename(filepath.Base(file)), s.now())
	url, err := s.objects.PresignUpload(ctx, key, contentType, storage.UploadURLTTL)
	if err != nil {
		s.log.Error("presign upload failed", zap.String("key", key), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindInternal, util.STORAGE_UNAVAILABLE, err)
	}
	s.log.Debug("upload url issued", zap.String("key", key), zap.String("contentType", contentType))
	return &UploadTicket{
		URL:         url,
		Key:         key,
		ContentType: contentType,
		ExpiresIn:   int(storage.UploadURLTTL / time.Second),
	}, nil
}
