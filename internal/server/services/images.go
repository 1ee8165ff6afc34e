package services

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"golang.org/x/sync/errgroup"
)

// MaxImagesPerUpload caps the files accepted in one request.
const MaxImagesPerUpload = 10

// ImageFile is one file of a multipart upload.
type ImageFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type UploadedImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type ImageService struct {
	uploader Uploader
}

func NewImageService(uploader Uploader) *ImageService {
	return &ImageService{uploader: uploader}
}

// Upload stores all files concurrently. The result keeps the input order;
// any single failure fails the whole call with common.ErrUploadFailed.
func (s *ImageService) Upload(ctx context.Context, files []ImageFile) ([]UploadedImage, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images", common.ErrValidation)
	}
	if len(files) > MaxImagesPerUpload {
		return nil, fmt.Errorf("%w: at most %d images", common.ErrValidation, MaxImagesPerUpload)
	}

	result := make([]UploadedImage, len(files))
	g, ctx := errgroup.WithContext(ctx)

	for i, f := range files {
		g.Go(func() error {
			body, err := f.Open()
			if err != nil {
				return fmt.Errorf("%w: open %s: %v", common.ErrUploadFailed, f.Filename, err)
			}
			defer body.Close()

			url, err := s.uploader.Upload(ctx, f.Filename, body, f.Size, f.ContentType)
			if err != nil {
				return fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
			}
			result[i] = UploadedImage{URL: url, Caption: f.Filename}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
