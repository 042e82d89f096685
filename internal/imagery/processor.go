// Package imagery downloads and decodes the Solar API raster layers and
// converts them into the aligned image set and elevation grid the rest of
// the pipeline consumes.
package imagery

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	// Solar API rasters arrive as GeoTIFF; fallbacks may be PNG or JPEG.
	_ "image/jpeg"
	_ "golang.org/x/image/tiff"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/internal/resilience"
	"github.com/Tilak559/gutter-estimate/pkg/solar"
)

// Processor downloads imagery layers and produces processed PNGs.
type Processor struct {
	cfg   config.ImageryConfig
	http  *http.Client
	retry resilience.RetryConfig
}

// Option configures the processor.
type Option func(*Processor)

// WithHTTPClient overrides the download client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Processor) {
		p.http = hc
	}
}

// WithRetry overrides the download retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Processor) {
		p.retry = cfg
	}
}

// New creates a Processor.
func New(cfg config.ImageryConfig, opts ...Option) *Processor {
	p := &Processor{
		cfg:   cfg,
		http:  &http.Client{Timeout: 60 * time.Second},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Fetch downloads the RGB, mask, and DSM layers named by the data layers
// response, decodes them, and re-encodes each as PNG. sign appends API
// credentials to each layer URL.
//
// RGB and mask are required; a missing or undecodable DSM is tolerated and
// leaves the elevation layer nil, which downstream geometry treats as
// insufficient elevation data.
func (p *Processor) Fetch(ctx context.Context, layers *solar.DataLayers, sign func(string) string) (*model.RoofImageSet, []model.ProcessedImage, error) {
	if layers == nil {
		return nil, nil, model.NewImageryUnavailable(eris.New("imagery: no data layers"))
	}
	if layers.RGBURL == "" || layers.MaskURL == "" {
		return nil, nil, model.NewImageryUnavailable(eris.New("imagery: data layers missing rgb or mask url"))
	}

	var rgb, mask, dsm image.Image
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rgb, err = p.downloadLayer(gctx, sign(layers.RGBURL))
		return eris.Wrap(err, "imagery: rgb layer")
	})
	g.Go(func() error {
		var err error
		mask, err = p.downloadLayer(gctx, sign(layers.MaskURL))
		return eris.Wrap(err, "imagery: mask layer")
	})
	g.Go(func() error {
		if layers.DSMURL == "" {
			return nil
		}
		img, err := p.downloadLayer(gctx, sign(layers.DSMURL))
		if err != nil {
			zap.L().Warn("dsm layer unavailable, continuing without elevation",
				zap.Error(err),
			)
			return nil
		}
		dsm = img
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, model.NewImageryUnavailable(err)
	}

	set := &model.RoofImageSet{
		RGB:         rgb,
		Mask:        mask,
		Elevation:   dsm,
		GSD:         p.cfg.GSDMeters,
		ImageryDate: layers.ImageryDate.String(),
	}
	if err := set.Validate(); err != nil {
		return nil, nil, model.NewImageryUnavailable(err)
	}

	processed, err := p.process(set)
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("imagery fetched",
		zap.Int("width", rgb.Bounds().Dx()),
		zap.Int("height", rgb.Bounds().Dy()),
		zap.Bool("has_elevation", dsm != nil),
		zap.String("imagery_date", set.ImageryDate),
		zap.Float64("mask_coverage", set.MaskCoverage()),
	)
	return set, processed, nil
}

func (p *Processor) downloadLayer(ctx context.Context, rawURL string) (image.Image, error) {
	body, err := resilience.Do(ctx, p.retry, "imagery download", func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "build request")
		}

		resp, err := p.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "download")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("download returned status %d", resp.StatusCode)
			if resilience.TransientStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "decode image")
	}
	zap.L().Debug("imagery layer decoded",
		zap.String("format", format),
		zap.Int("bytes", len(body)),
	)
	return img, nil
}

// process re-encodes each layer as PNG, writes it to the imagery directory
// when one is configured, and base64-encodes it for the report and the
// vision classifier.
func (p *Processor) process(set *model.RoofImageSet) ([]model.ProcessedImage, error) {
	layers := []struct {
		typ model.ImageType
		img image.Image
	}{
		{model.ImageTypeRGB, set.RGB},
		{model.ImageTypeMask, set.Mask},
		{model.ImageTypeDSM, set.Elevation},
	}

	timestamp := time.Now().UnixMilli()
	out := make([]model.ProcessedImage, 0, len(layers))
	for _, l := range layers {
		if l.img == nil {
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, l.img); err != nil {
			return nil, eris.Wrapf(err, "imagery: encode %s layer", l.typ)
		}

		filename := fmt.Sprintf("%s_%d.png", l.typ, timestamp)
		if p.cfg.Dir != "" {
			if err := os.MkdirAll(p.cfg.Dir, 0o755); err != nil {
				return nil, eris.Wrap(err, "imagery: create image dir")
			}
			if err := os.WriteFile(filepath.Join(p.cfg.Dir, filename), buf.Bytes(), 0o644); err != nil {
				return nil, eris.Wrapf(err, "imagery: write %s", filename)
			}
		}

		out = append(out, model.ProcessedImage{
			Type:     l.typ,
			Filename: filename,
			Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
			Width:    l.img.Bounds().Dx(),
			Height:   l.img.Bounds().Dy(),
		})
	}
	return out, nil
}
