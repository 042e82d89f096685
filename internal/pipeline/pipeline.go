// Package pipeline orchestrates a full gutter estimate: geocode, building
// insights, imagery, footprint, geometry, classification, and estimation.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Tilak559/gutter-estimate/internal/classify"
	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/estimator"
	"github.com/Tilak559/gutter-estimate/internal/geometry"
	"github.com/Tilak559/gutter-estimate/internal/imagery"
	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/internal/perimeter"
	"github.com/Tilak559/gutter-estimate/internal/store"
	"github.com/Tilak559/gutter-estimate/pkg/footprint"
	"github.com/Tilak559/gutter-estimate/pkg/geocode"
	"github.com/Tilak559/gutter-estimate/pkg/solar"
)

// ImageFetcher downloads and processes the imagery layers for a building.
type ImageFetcher interface {
	Fetch(ctx context.Context, layers *solar.DataLayers, sign func(string) string) (*model.RoofImageSet, []model.ProcessedImage, error)
}

// Pipeline runs the estimation stages in order, deduplicating concurrent
// requests for the same address and caching completed reports.
type Pipeline struct {
	cfg        *config.Config
	geocoder   geocode.Client
	solar      solar.Client
	imagery    ImageFetcher
	classifier classify.Classifier
	footprints footprint.Provider // optional; nil means bounding-box only
	store      store.Store        // optional; nil disables history

	extractor  *geometry.Extractor
	calculator *perimeter.Calculator
	estimator  *estimator.Estimator

	group singleflight.Group
	cache *resultCache
}

// New creates a Pipeline with all collaborators wired. footprints and st
// may be nil.
func New(
	cfg *config.Config,
	geocoder geocode.Client,
	solarClient solar.Client,
	fetcher ImageFetcher,
	classifier classify.Classifier,
	footprints footprint.Provider,
	st store.Store,
) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		geocoder:   geocoder,
		solar:      solarClient,
		imagery:    fetcher,
		classifier: classifier,
		footprints: footprints,
		store:      st,
		extractor:  geometry.NewExtractor(cfg.Geometry),
		calculator: perimeter.NewCalculator(cfg.Perimeter),
		estimator:  estimator.New(cfg.Estimator),
	}
	if cfg.Cache.Enabled {
		p.cache = newResultCache(time.Duration(cfg.Cache.TTLMins)*time.Minute, cfg.Cache.MaxItems)
	}
	return p
}

// NewFromConfig builds the production collaborator set from configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	if cfg.Google.APIKey == "" {
		return nil, eris.New("pipeline: google api key is required")
	}

	geocoder := geocode.NewClient(cfg.Google.APIKey,
		geocode.WithRateLimit(cfg.Google.GeocodeRPS),
	)

	solarOpts := []solar.Option{solar.WithRadiusMeters(int(cfg.Solar.RadiusMeters))}
	if cfg.Solar.BaseURL != "" {
		solarOpts = append(solarOpts, solar.WithBaseURL(cfg.Solar.BaseURL))
	}
	solarClient := solar.NewClient(cfg.Google.APIKey, solarOpts...)

	classifier, err := classify.New(cfg.Classify)
	if err != nil {
		return nil, err
	}

	var footprints footprint.Provider
	if cfg.Footprint.ShapefilePath != "" {
		footprints, err = footprint.NewShapefileProvider(cfg.Footprint.ShapefilePath)
		if err != nil {
			return nil, err
		}
	}

	var st store.Store
	if cfg.Store.Driver != "" && cfg.Store.Driver != "none" {
		st, err = store.New(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
	}

	return New(cfg, geocoder, solarClient, imagery.New(cfg.Imagery), classifier, footprints, st), nil
}

// Close releases held resources.
func (p *Pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// Estimate produces a gutter estimate report for a street address.
// Concurrent requests for the same normalized address share one upstream
// run. Completed reports are cached by normalized address plus imagery
// date, so a hit requires only the geocode and data-layers metadata
// calls; a refreshed imagery flight invalidates the entry without
// waiting out the TTL.
func (p *Pipeline) Estimate(ctx context.Context, address string) (*model.Report, error) {
	key := NormalizeAddress(address)
	if key == "" {
		return nil, model.NewAddressNotFound(eris.New("pipeline: empty address"))
	}

	v, err, shared := p.group.Do(key, func() (interface{}, error) {
		geo, geoErr := p.geocoder.Geocode(ctx, address)
		if geoErr != nil {
			return nil, model.NewAddressNotFound(eris.Wrap(geoErr, "pipeline: geocode"))
		}
		if !geo.Matched {
			return nil, model.NewAddressNotFound(eris.Errorf("pipeline: no geocode match for %q", address))
		}

		// Data-layers metadata is a single cheap GET; fetching it before
		// the cache lookup lets the key carry the imagery vintage.
		layers, layersErr := p.solar.GetDataLayers(ctx, geo.Latitude, geo.Longitude)
		if layersErr != nil {
			return nil, model.NewImageryUnavailable(eris.Wrap(layersErr, "pipeline: data layers"))
		}

		cacheKey := key + "|" + layers.ImageryDate.String()
		if p.cache != nil {
			if report, ok := p.cache.get(cacheKey); ok {
				zap.L().Debug("pipeline: cache hit",
					zap.String("address", key),
					zap.String("imagery_date", layers.ImageryDate.String()),
				)
				return report, nil
			}
		}
		report, runErr := p.run(ctx, address, geo, layers)
		if runErr != nil {
			return nil, runErr
		}
		if p.cache != nil {
			p.cache.put(cacheKey, report)
		}
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Debug("pipeline: request deduplicated", zap.String("address", key))
	}
	return v.(*model.Report), nil
}

// run executes one full estimation past the geocode and data-layers
// stages. Every failure is typed before it leaves this function; no
// partial report is ever returned.
func (p *Pipeline) run(ctx context.Context, address string, geo *geocode.Result, layers *solar.DataLayers) (*model.Report, error) {
	log := zap.L().With(zap.String("address", address))
	start := time.Now()
	log.Info("pipeline: starting estimate",
		zap.Float64("lat", geo.Latitude),
		zap.Float64("lng", geo.Longitude),
		zap.String("quality", geo.Quality),
	)

	// Insights and the raster downloads hit different endpoints; fetch in
	// parallel.
	var (
		insights  *solar.BuildingInsights
		set       *model.RoofImageSet
		processed []model.ProcessedImage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		insights, gerr = p.solar.FindClosestBuilding(gctx, geo.Latitude, geo.Longitude)
		if gerr != nil {
			if errors.Is(gerr, solar.ErrBuildingNotFound) {
				return model.NewAddressNotFound(gerr)
			}
			return model.NewImageryUnavailable(eris.Wrap(gerr, "pipeline: building insights"))
		}
		return nil
	})
	g.Go(func() error {
		var gerr error
		set, processed, gerr = p.imagery.Fetch(gctx, layers, p.solar.SignedURL)
		return gerr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fp, err := p.resolveFootprint(ctx, insights)
	if err != nil {
		return nil, err
	}
	log.Debug("pipeline: footprint resolved",
		zap.String("source", string(fp.Source)),
		zap.Float64("area_m2", fp.AreaM2()),
		zap.Float64("perimeter_m", fp.PerimeterM()),
	)

	grid, err := imagery.GridFromImageSet(set, p.cfg.Imagery.DSMRangeM)
	if err != nil {
		// Fail open: geometry treats a missing grid as low-confidence data.
		log.Warn("pipeline: elevation grid unavailable", zap.Error(err))
		grid = nil
	}

	segStats := insights.SolarPotential.RoofSegmentStats
	in := classify.Input{
		Images:       set,
		Processed:    processed,
		SegmentCount: len(segStats),
		Pitches:      make([]float64, 0, len(segStats)),
		Azimuths:     make([]float64, 0, len(segStats)),
		AreaM2:       insights.SolarPotential.WholeRoofStats.GroundAreaMeters2,
	}
	for _, s := range segStats {
		in.Pitches = append(in.Pitches, s.PitchDegrees)
		in.Azimuths = append(in.Azimuths, s.AzimuthDegrees)
	}

	// Classification is the latency-heavy stage; run geometry alongside it.
	var (
		segments       []model.EaveSegment
		classification model.RoofClassification
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		segments, gerr = p.extractor.Extract(fp, grid)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		classification, gerr = p.classifier.Classify(gctx, in)
		if gerr != nil {
			return eris.Wrap(gerr, "pipeline: classify")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	per := p.calculator.Calculate(segments, classification)
	estimate := p.estimator.Estimate(per, classification)

	report := &model.Report{
		ID:      uuid.New().String(),
		Success: true,
		Address: geo.FormattedAddress,
		BuildingInsights: model.BuildingSummary{
			Latitude:         insights.Center.Latitude,
			Longitude:        insights.Center.Longitude,
			GroundAreaM2:     insights.SolarPotential.WholeRoofStats.GroundAreaMeters2,
			PerimeterM:       fp.PerimeterM(),
			RoofSegmentCount: len(segStats),
			ImageryDate:      set.ImageryDate,
			FootprintSource:  string(fp.Source),
		},
		RoofClassification: classification,
		GutterEstimate:     estimate,
		Images: model.ReportImages{
			ImagesProcessed: len(processed),
			Items:           processed,
		},
	}

	if p.store != nil {
		if saveErr := p.store.SaveEstimate(ctx, report); saveErr != nil {
			log.Warn("pipeline: failed to record estimate", zap.Error(saveErr))
		}
	}

	log.Info("pipeline: estimate complete",
		zap.String("id", report.ID),
		zap.String("roof_type", string(classification.RoofType)),
		zap.Float64("confidence", classification.Confidence),
		zap.Float64("total_gutter_ft", estimate.TotalGutterFt),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// resolveFootprint prefers a true polygon from the shapefile dataset and
// falls back to a rectangle built from the insights bounding box.
func (p *Pipeline) resolveFootprint(ctx context.Context, insights *solar.BuildingInsights) (*model.BuildingFootprint, error) {
	lat := insights.Center.Latitude
	lng := insights.Center.Longitude

	if p.footprints != nil {
		b, err := p.footprints.Find(ctx, lat, lng)
		switch {
		case err == nil:
			ring := geometry.ProjectRing(b.Ring, lat, lng)
			fp, fpErr := model.NewBuildingFootprint(ring, model.FootprintSourceShapefile, lat, lng)
			if fpErr == nil {
				return fp, nil
			}
			zap.L().Warn("pipeline: shapefile footprint invalid, falling back to bounding box", zap.Error(fpErr))
		case errors.Is(err, footprint.ErrNotFound):
			zap.L().Debug("pipeline: no shapefile footprint at location")
		default:
			return nil, eris.Wrap(err, "pipeline: footprint lookup")
		}
	}

	box := insights.BoundingBox
	ring := geometry.RectangleRing(
		box.SW.Latitude, box.SW.Longitude,
		box.NE.Latitude, box.NE.Longitude,
		lat, lng,
	)
	return model.NewBuildingFootprint(ring, model.FootprintSourceSolarBBox, lat, lng)
}
