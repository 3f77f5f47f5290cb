package mainimage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// Decode validates data as a raster image and measures the decoded bounds.
// Payloads that are not images (HTML error pages, SVG, truncated files) fail with utils.ErrDecode,
// as do headers declaring more than maxPixels pixels (<= 0 means config.DefaultMaxPixels).
func Decode(data []byte, maxPixels int64) (*models.FetchedImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", utils.ErrDecode)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: payload is %s", utils.ErrDecode, mtype.String())
	}

	if maxPixels <= 0 {
		maxPixels = config.DefaultMaxPixels
	}
	// The header is read first: decoding allocates the declared raster up front
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrDecode, mtype.String(), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", utils.ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", utils.ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrDecode, mtype.String(), err)
	}

	b := img.Bounds()
	return &models.FetchedImage{
		Raw:    data,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Image:  img,
	}, nil
}

// EncodePNG re-encodes img as PNG into an in-memory buffer
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: PNG encode: %w", utils.ErrDecode, err)
	}
	return buf.Bytes(), nil
}
