package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-service/internal/audit"
	"catalog-service/internal/cache"
	"catalog-service/pkg/config"
	"catalog-service/prometheus"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "catalog_test"}})
	os.Exit(m.Run())
}

func validRow(line int) Row {
	return Row{
		Line:         line,
		ProductName:  "Indomie Chicken Curry 70g (Single Pack)",
		Manufacturer: "Nestle",
		Brand:        "Indomie",
		Variant:      "Chicken Curry",
		Category:     "Food",
		PackSize:     "70g",
		PackType:     "Single Pack",
	}
}

func TestValidateRow_ListsMissingFields(t *testing.T) {
	_, err := validateRow(Row{Line: 2, ProductName: "X", Brand: "Indomie"})
	require.Error(t, err)
	require.Equal(t, ErrCodeBadRequest, AsError(err).Code)
	require.Contains(t, err.Error(), "manufacturer")
	require.Contains(t, err.Error(), "variant")
	require.Contains(t, err.Error(), "pack type")
	require.NotContains(t, err.Error(), "product name")
}

func TestValidateRow_MissingPriceWarnsAndQueues(t *testing.T) {
	in, err := validateRow(validRow(2))
	require.NoError(t, err)
	require.True(t, in.price.IsZero())
	require.Len(t, in.warnings, 1)
	require.Contains(t, in.warnings[0], "price not provided")
}

func TestValidateRow_PriceAndDiscountBounds(t *testing.T) {
	r := validRow(2)
	r.Price = "150.00"
	r.Discount = "15"
	in, err := validateRow(r)
	require.NoError(t, err)
	require.True(t, in.price.Equal(decimal.RequireFromString("150.00")))
	require.Equal(t, 15, in.discount)
	require.Empty(t, in.warnings)

	r.Price = "abc"
	_, err = validateRow(r)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid price")

	r.Price = "-5"
	_, err = validateRow(r)
	require.Error(t, err)
	require.Contains(t, err.Error(), "negative")

	r.Price = "10"
	r.Discount = "101"
	_, err = validateRow(r)
	require.Error(t, err)
	require.Contains(t, err.Error(), "between 0 and 100")

	r.Discount = "ten"
	_, err = validateRow(r)
	require.Error(t, err)
}

func TestValidateRow_ImagesBecomeJSONArray(t *testing.T) {
	r := validRow(2)
	r.Images = " https://cdn.example.com/a.jpg , https://cdn.example.com/b.jpg ,"

	in, err := validateRow(r)
	require.NoError(t, err)
	require.JSONEq(t, `["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"]`, string(in.images))
}

func TestCacheKey_QualifiesKindParentAndCasing(t *testing.T) {
	parent := uuid.MustParse("00000000-0000-0000-0000-000000000010")

	require.Equal(t, cacheKey("brands", parent, "Indomie"), cacheKey("brands", parent, "INDOMIE  "))
	require.NotEqual(t, cacheKey("brands", parent, "Indomie"), cacheKey("brands", uuid.Nil, "Indomie"))
	require.NotEqual(t, cacheKey("brands", parent, "Indomie"), cacheKey("variants", parent, "Indomie"))
}

func TestMemoResolve_ResolvesDistinctEntitiesOnce(t *testing.T) {
	ing := &Ingestor{}
	report := &Report{EntitiesCreated: map[string]int{}, EntitiesReferenced: map[string]int{}}
	memo := runCache{}

	calls := 0
	want := Resolution{ID: uuid.New(), Name: "Indomie", Created: true}
	resolve := func() (Resolution, error) {
		calls++
		return want, nil
	}

	first, err := ing.memoResolve(memo, report, "brands", uuid.Nil, "Indomie", resolve)
	require.NoError(t, err)
	second, err := ing.memoResolve(memo, report, "brands", uuid.Nil, "indomie", resolve)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
	require.Equal(t, 1, report.EntitiesCreated["brands"])
	require.Zero(t, report.EntitiesReferenced["brands"])
}

func TestMemoResolve_CountsLookupsAsReferenced(t *testing.T) {
	ing := &Ingestor{}
	report := &Report{EntitiesCreated: map[string]int{}, EntitiesReferenced: map[string]int{}}
	memo := runCache{}

	_, err := ing.memoResolve(memo, report, "manufacturers", uuid.Nil, "Nestle", func() (Resolution, error) {
		return Resolution{ID: uuid.New(), Name: "Nestle"}, nil
	})
	require.NoError(t, err)
	require.Zero(t, report.EntitiesCreated["manufacturers"])
	require.Equal(t, 1, report.EntitiesReferenced["manufacturers"])
}

func TestMemoResolve_ErrorsAreNotCached(t *testing.T) {
	ing := &Ingestor{}
	report := &Report{EntitiesCreated: map[string]int{}, EntitiesReferenced: map[string]int{}}
	memo := runCache{}

	calls := 0
	resolve := func() (Resolution, error) {
		calls++
		if calls == 1 {
			return Resolution{}, Internal("connection reset", nil)
		}
		return Resolution{ID: uuid.New(), Name: "Indomie", Created: true}, nil
	}

	_, err := ing.memoResolve(memo, report, "brands", uuid.Nil, "Indomie", resolve)
	require.Error(t, err)
	res, err := ing.memoResolve(memo, report, "brands", uuid.Nil, "Indomie", resolve)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.True(t, res.Created)
	require.Equal(t, 1, report.EntitiesCreated["brands"])
}

// rejectingResolver fails every resolution, which keeps Ingest away from the
// database and exercises the per-row error paths.
type rejectingResolver struct{}

func (rejectingResolver) ResolveManufacturer(ctx context.Context, name string, actor uint) (Resolution, error) {
	return Resolution{}, BadRequest("manufacturer %q is not allowed", name)
}

func (rejectingResolver) ResolveCategory(ctx context.Context, name string, actor uint) (Resolution, error) {
	return Resolution{}, BadRequest("category %q is not allowed", name)
}

func (rejectingResolver) ResolveSubcategory(ctx context.Context, categoryID uuid.UUID, name, description string, actor uint) (Resolution, error) {
	return Resolution{}, BadRequest("subcategory %q is not allowed", name)
}

func (rejectingResolver) ResolveBrand(ctx context.Context, manufacturerID uuid.UUID, name string, actor uint) (Resolution, error) {
	return Resolution{}, BadRequest("brand %q is not allowed", name)
}

func (rejectingResolver) ResolveVariant(ctx context.Context, brandID uuid.UUID, name string, actor uint) (Resolution, error) {
	return Resolution{}, BadRequest("variant %q is not allowed", name)
}

func (rejectingResolver) ResolvePackSize(ctx context.Context, variantID uuid.UUID, name string, actor uint) (Resolution, error) {
	return Resolution{}, BadRequest("pack size %q is not allowed", name)
}

func (rejectingResolver) ResolvePackType(ctx context.Context, variantID uuid.UUID, name string, actor uint) (Resolution, error) {
	return Resolution{}, BadRequest("pack type %q is not allowed", name)
}

func newOfflineIngestor(timeout time.Duration) *Ingestor {
	return NewIngestor(nil, rejectingResolver{}, cache.NopInvalidator{},
		audit.NewLogRecorder(zap.NewNop()), config.BulkConfig{MaxRows: 100, RunTimeout: timeout})
}

func TestIngest_RowFailuresDoNotAbortTheRun(t *testing.T) {
	ing := newOfflineIngestor(time.Minute)
	rows := []Row{
		{Line: 2}, // misses every required field
		validRow(3),
	}

	report := ing.Ingest(context.Background(), rows, 7)

	require.Equal(t, 2, report.TotalRows)
	require.Zero(t, report.SuccessfulRows)
	require.Equal(t, 2, report.FailedRows)
	require.Len(t, report.RowResults, 2)
	require.Equal(t, rowStatusFailed, report.RowResults[0].Status)
	require.Equal(t, 2, report.RowResults[0].Row)
	require.Contains(t, report.RowResults[0].Error, "missing required field(s)")
	require.Contains(t, report.RowResults[1].Error, `manufacturer "Nestle" is not allowed`)
	require.Empty(t, report.EntitiesCreated)
	require.Empty(t, report.EntitiesReferenced)
}

func TestIngest_ExpiredBudgetFailsRemainingRows(t *testing.T) {
	ing := newOfflineIngestor(-time.Second)

	report := ing.Ingest(context.Background(), []Row{validRow(2), validRow(3)}, 7)

	require.Equal(t, 2, report.FailedRows)
	for _, rr := range report.RowResults {
		require.Equal(t, rowStatusFailed, rr.Status)
		require.Contains(t, rr.Error, "time budget")
	}
}
