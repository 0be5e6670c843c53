package rasterio

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/rasterkit/rasterkit/internal/geo"
)

// WritePNG stores a rendered image with world file and projection
// sidecars. PNG is an export format; raster values do not survive a round
// trip through it.
func WritePNG(path string, img image.Image, tf geo.Affine, crs string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterio: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("rasterio: encoding png %s: %w", path, err)
	}
	return writeSidecars(path, tf, crs)
}
