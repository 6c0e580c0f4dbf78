package service

import (
	"context"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const MaxImageSize = 10 << 20

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Uploader 图片托管，生产环境为 pkg.CloudinaryClient
type Uploader interface {
	Upload(ctx context.Context, filename string, content []byte) (string, error)
}

type UploadService struct {
	uploader Uploader
	maxSize  int64
}

func NewUploadService(uploader Uploader) *UploadService {
	return &UploadService{uploader: uploader, maxSize: MaxImageSize}
}

// UploadImage 按内容识别类型，不信任文件名和 Content-Type
func (s *UploadService) UploadImage(ctx context.Context, r io.Reader, size int64) (string, error) {
	if size > s.maxSize {
		return "", invalid("Image size must be less than 10MB")
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.maxSize {
		return "", invalid("Image size must be less than 10MB")
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return "", invalid("Please upload a valid image file (JPEG, PNG, GIF, or WebP)")
	}
	return s.uploader.Upload(ctx, uuid.NewString()+mtype.Extension(), data)
}
