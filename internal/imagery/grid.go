package imagery

import (
	"image"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/Tilak559/gutter-estimate/internal/model"
)

// GridFromImageSet converts the elevation layer of an image set to a
// metric grid centered on the scene. Luminance is normalized to
// [0, rangeM] meters; zero-luminance and transparent pixels are treated
// as nodata. Returns nil when the set has no elevation layer.
func GridFromImageSet(set *model.RoofImageSet, rangeM float64) (*model.ElevationGrid, error) {
	if set == nil || set.Elevation == nil {
		return nil, nil
	}

	b := set.Elevation.Bounds()
	w, h := b.Dx(), b.Dy()
	cell := set.GSD

	// Center the grid on the scene so footprint coordinates (meters
	// relative to the building center) sample the right cells. Image row
	// 0 is the northern edge, so rows are flipped.
	grid, err := model.NewElevationGrid(w, h, cell,
		-float64(w)/2*cell,
		-float64(h)/2*cell,
	)
	if err != nil {
		return nil, err
	}

	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			heightM, ok := sampleHeight(set.Elevation, b.Min.X+px, b.Min.Y+py, rangeM)
			if !ok {
				continue
			}
			grid.Set(px, h-1-py, heightM)
		}
	}

	if samples := grid.ValidSamples(); len(samples) > 0 {
		zap.L().Debug("elevation grid built",
			zap.Int("width", w),
			zap.Int("height", h),
			zap.Int("valid_samples", len(samples)),
			zap.Float64("mean_m", stat.Mean(samples, nil)),
			zap.Float64("stddev_m", stat.StdDev(samples, nil)),
		)
	}
	return grid, nil
}

// sampleHeight maps one pixel's luminance to meters. Nodata pixels
// (transparent or pure black) report false.
func sampleHeight(img image.Image, x, y int, rangeM float64) (float64, bool) {
	r, g, b, a := img.At(x, y).RGBA()
	if a == 0 {
		return 0, false
	}
	// Rec. 601 luma over 16-bit channels.
	luma := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if luma == 0 {
		return 0, false
	}
	return luma / 0xffff * rangeM, true
}
