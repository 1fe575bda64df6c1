package cloudinary

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Config holds Cloudinary credentials (from env or config).
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Optimized image params for fast frontend loading
const (
	ImageQuality     = "auto"
	ImageFetchFormat = "auto"
	ImageCrop        = "fill"
	ImageWidth       = 400
	ThumbWidth       = 200
)

// ErrNotConfigured is returned when no cloud name is set.
var ErrNotConfigured = errors.New("cloudinary: not configured")

// BuildOptimizedImageURL returns a Cloudinary URL with transformations for optimized delivery.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_%s,f_%s,w_%d,c_%s/%s",
		cloudName, ImageQuality, ImageFetchFormat, width, ImageCrop, publicID)
}

// assetFinder is the slice of the Admin API the resolver needs.
type assetFinder interface {
	Asset(ctx context.Context, params admin.AssetParams) (*admin.AssetResult, error)
}

// Resolver turns stored profile picture public ids into delivery URLs. It
// asks the Admin API whether the asset still exists before handing out a URL.
type Resolver struct {
	cloudName string
	width     int
	assets    assetFinder
}

// NewResolver builds a Resolver from Cloudinary cloud name, API key, and secret.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.CloudName == "" {
		return nil, ErrNotConfigured
	}
	c, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	adm, err := admin.NewWithConfiguration(c)
	if err != nil {
		return nil, err
	}
	return &Resolver{cloudName: cfg.CloudName, width: ImageWidth, assets: adm}, nil
}

// ImageURL returns the optimized URL of publicID, or "" when the asset is gone.
func (r *Resolver) ImageURL(ctx context.Context, publicID string) (string, error) {
	if publicID == "" {
		return "", nil
	}
	res, err := r.assets.Asset(ctx, admin.AssetParams{PublicID: publicID})
	if err != nil {
		return "", fmt.Errorf("cloudinary asset %s: %w", publicID, err)
	}
	if res == nil {
		return "", nil
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary asset %s: %s", publicID, res.Error.Message)
	}
	if res.PublicID == "" {
		return "", nil
	}
	return BuildOptimizedImageURL(r.cloudName, res.PublicID, r.width), nil
}
