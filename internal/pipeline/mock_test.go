package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Tilak559/gutter-estimate/internal/classify"
	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/internal/store"
	"github.com/Tilak559/gutter-estimate/pkg/footprint"
	"github.com/Tilak559/gutter-estimate/pkg/geocode"
	"github.com/Tilak559/gutter-estimate/pkg/solar"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geocode.Result), args.Error(1)
}

type mockSolar struct {
	mock.Mock
}

func (m *mockSolar) FindClosestBuilding(ctx context.Context, lat, lng float64) (*solar.BuildingInsights, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*solar.BuildingInsights), args.Error(1)
}

func (m *mockSolar) GetDataLayers(ctx context.Context, lat, lng float64) (*solar.DataLayers, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*solar.DataLayers), args.Error(1)
}

func (m *mockSolar) SignedURL(rawURL string) string {
	args := m.Called(rawURL)
	return args.String(0)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, layers *solar.DataLayers, sign func(string) string) (*model.RoofImageSet, []model.ProcessedImage, error) {
	args := m.Called(ctx, layers, sign)
	var set *model.RoofImageSet
	if args.Get(0) != nil {
		set = args.Get(0).(*model.RoofImageSet)
	}
	var processed []model.ProcessedImage
	if args.Get(1) != nil {
		processed = args.Get(1).([]model.ProcessedImage)
	}
	return set, processed, args.Error(2)
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, in classify.Input) (model.RoofClassification, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.RoofClassification), args.Error(1)
}

type mockFootprints struct {
	mock.Mock
}

func (m *mockFootprints) Find(ctx context.Context, lat, lng float64) (*footprint.Building, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*footprint.Building), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveEstimate(ctx context.Context, report *model.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockStore) GetEstimate(ctx context.Context, id string) (*model.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *mockStore) ListRecent(ctx context.Context, limit int) ([]store.EstimateRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.EstimateRecord), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
