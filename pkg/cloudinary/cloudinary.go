// Package cloudinary uploads business branding images.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Uploader stores a logo and returns its public URL.
type Uploader interface {
	UploadLogo(ctx context.Context, file io.Reader, publicID string) (string, error)
}

// Wallet logos render at 160x50 points; 480 wide covers the @3x asset.
const (
	logoEager = "q_auto,f_png,w_480,c_limit"
	LogoWidth = 480
)

func BuildLogoURL(cloudName, publicID string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s/%s", cloudName, logoEager, publicID)
}

type client struct {
	cloudName string
	folder    string
	uploader  *uploader.API
}

func (c *client) UploadLogo(ctx context.Context, file io.Reader, publicID string) (string, error) {
	overwrite := true
	eagerAsync := false
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     c.folder,
		PublicID:   publicID,
		Overwrite:  &overwrite,
		Eager:      logoEager,
		EagerAsync: &eagerAsync,
	})
	if err != nil {
		return "", err
	}
	if result.Error.Message != "" {
		return "", errors.New(result.Error.Message)
	}
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		return result.Eager[0].SecureURL, nil
	}
	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	return BuildLogoURL(c.cloudName, result.PublicID), nil
}

// New builds an Uploader writing into folder.
func New(cloudName, apiKey, apiSecret, folder string) (Uploader, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &client{cloudName: cloudName, folder: folder, uploader: up}, nil
}
