package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"catalog-service/internal/audit"
	"catalog-service/internal/cache"
	"catalog-service/internal/model"
	"catalog-service/pkg/config"
	"catalog-service/prometheus"
)

const (
	rowStatusSuccess = "success"
	rowStatusFailed  = "failed"
)

// resolverAPI is the slice of the hierarchy resolver the ingestor consumes.
type resolverAPI interface {
	ResolveManufacturer(ctx context.Context, name string, actor uint) (Resolution, error)
	ResolveCategory(ctx context.Context, name string, actor uint) (Resolution, error)
	ResolveSubcategory(ctx context.Context, categoryID uuid.UUID, name, description string, actor uint) (Resolution, error)
	ResolveBrand(ctx context.Context, manufacturerID uuid.UUID, name string, actor uint) (Resolution, error)
	ResolveVariant(ctx context.Context, brandID uuid.UUID, name string, actor uint) (Resolution, error)
	ResolvePackSize(ctx context.Context, variantID uuid.UUID, name string, actor uint) (Resolution, error)
	ResolvePackType(ctx context.Context, variantID uuid.UUID, name string, actor uint) (Resolution, error)
}

// RowResult reports the outcome of one data row.
type RowResult struct {
	Row       int        `json:"row"`
	Status    string     `json:"status"`
	Product   string     `json:"product,omitempty"`
	SKU       string     `json:"sku,omitempty"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Report is the structured outcome of one ingestion run. Entity counters
// are keyed by plural kind name and count distinct entities, not rows.
type Report struct {
	TotalRows          int            `json:"total_rows"`
	SuccessfulRows     int            `json:"successful_rows"`
	FailedRows         int            `json:"failed_rows"`
	EntitiesCreated    map[string]int `json:"entities_created"`
	EntitiesReferenced map[string]int `json:"entities_referenced"`
	RowResults         []RowResult    `json:"row_results"`
	ProcessingTimeMs   int64          `json:"processing_time_ms"`
}

// runCache memoizes resolver results for one ingestion run so an ancestor
// named in hundreds of rows is resolved once. Keys qualify the normalized
// name with kind and parent; the cache lives and dies with the run.
type runCache map[string]Resolution

func cacheKey(kind string, parent uuid.UUID, name string) string {
	return kind + "|" + parent.String() + "|" + model.NameKey(name)
}

// Ingestor turns parsed upload rows into the deduplicated entity graph and
// its leaf products. Rows are processed sequentially and independently; a
// failed row never aborts the run.
type Ingestor struct {
	db          *gorm.DB
	resolver    resolverAPI
	invalidator cache.Invalidator
	audit       audit.Recorder
	cfg         config.BulkConfig
}

func NewIngestor(db *gorm.DB, resolver resolverAPI, invalidator cache.Invalidator, recorder audit.Recorder, cfg config.BulkConfig) *Ingestor {
	return &Ingestor{db: db, resolver: resolver, invalidator: invalidator, audit: recorder, cfg: cfg}
}

// Ingest runs the pipeline over all rows and always returns a report, never
// an error: failures are per-row. The run is bounded by the configured
// timeout; rows that were not reached in time are reported as failed.
func (ing *Ingestor) Ingest(ctx context.Context, rows []Row, actor uint) *Report {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, ing.cfg.RunTimeout)
	defer cancel()

	report := &Report{
		TotalRows:          len(rows),
		EntitiesCreated:    map[string]int{},
		EntitiesReferenced: map[string]int{},
		RowResults:         make([]RowResult, 0, len(rows)),
	}
	memo := runCache{}
	var createdIDs []uuid.UUID

	for _, row := range rows {
		if runCtx.Err() != nil {
			report.RowResults = append(report.RowResults, RowResult{
				Row:    row.Line,
				Status: rowStatusFailed,
				Error:  fmt.Sprintf("ingestion run exceeded its %s time budget", ing.cfg.RunTimeout),
			})
			report.FailedRows++
			continue
		}
		result := ing.processRow(runCtx, memo, report, row, actor)
		report.RowResults = append(report.RowResults, result)
		if result.Status == rowStatusSuccess {
			report.SuccessfulRows++
			if result.ProductID != nil {
				createdIDs = append(createdIDs, *result.ProductID)
			}
		} else {
			report.FailedRows++
		}
	}

	report.ProcessingTimeMs = time.Since(start).Milliseconds()
	prometheus.RecordIngestRun(time.Since(start), report.SuccessfulRows, report.FailedRows)
	ing.audit.Record(ctx, audit.Entry{
		Action:   "bulk_ingest",
		Resource: "product",
		Actor:    actor,
		Metadata: map[string]interface{}{
			"total_rows":      report.TotalRows,
			"successful_rows": report.SuccessfulRows,
			"failed_rows":     report.FailedRows,
		},
	})
	if len(createdIDs) > 0 {
		ing.invalidator.InvalidateProducts(ctx, "bulk_ingest", createdIDs...)
	}
	zap.L().Info("bulk ingestion finished",
		zap.Int("total_rows", report.TotalRows),
		zap.Int("successful_rows", report.SuccessfulRows),
		zap.Int("failed_rows", report.FailedRows),
		zap.Int64("processing_time_ms", report.ProcessingTimeMs))
	return report
}

// processRow validates one row, resolves its ancestor chain through the
// memo cache, derives the product identity, and creates the leaf in QUEUE.
func (ing *Ingestor) processRow(ctx context.Context, memo runCache, report *Report, row Row, actor uint) RowResult {
	result := RowResult{Row: row.Line, Status: rowStatusFailed}

	in, err := validateRow(row)
	if err != nil {
		result.Error = ing.rowError(row, err)
		return result
	}
	result.Warnings = in.warnings

	man, err := ing.memoResolve(memo, report, "manufacturers", uuid.Nil, row.Manufacturer, func() (Resolution, error) {
		return ing.resolver.ResolveManufacturer(ctx, row.Manufacturer, actor)
	})
	if err != nil {
		result.Error = ing.rowError(row, err)
		return result
	}
	cat, err := ing.memoResolve(memo, report, "categories", uuid.Nil, row.Category, func() (Resolution, error) {
		return ing.resolver.ResolveCategory(ctx, row.Category, actor)
	})
	if err != nil {
		result.Error = ing.rowError(row, err)
		return result
	}
	var subcategoryID *uuid.UUID
	if row.Subcategory != "" {
		sub, err := ing.memoResolve(memo, report, "subcategories", cat.ID, row.Subcategory, func() (Resolution, error) {
			return ing.resolver.ResolveSubcategory(ctx, cat.ID, row.Subcategory, row.SubcategoryDescription, actor)
		})
		if err != nil {
			result.Error = ing.rowError(row, err)
			return result
		}
		subcategoryID = &sub.ID
	}
	brand, err := ing.memoResolve(memo, report, "brands", man.ID, row.Brand, func() (Resolution, error) {
		return ing.resolver.ResolveBrand(ctx, man.ID, row.Brand, actor)
	})
	if err != nil {
		result.Error = ing.rowError(row, err)
		return result
	}
	variant, err := ing.memoResolve(memo, report, "variants", brand.ID, row.Variant, func() (Resolution, error) {
		return ing.resolver.ResolveVariant(ctx, brand.ID, row.Variant, actor)
	})
	if err != nil {
		result.Error = ing.rowError(row, err)
		return result
	}
	size, err := ing.memoResolve(memo, report, "pack_sizes", variant.ID, row.PackSize, func() (Resolution, error) {
		return ing.resolver.ResolvePackSize(ctx, variant.ID, row.PackSize, actor)
	})
	if err != nil {
		result.Error = ing.rowError(row, err)
		return result
	}
	packType, err := ing.memoResolve(memo, report, "pack_types", variant.ID, row.PackType, func() (Resolution, error) {
		return ing.resolver.ResolvePackType(ctx, variant.ID, row.PackType, actor)
	})
	if err != nil {
		result.Error = ing.rowError(row, err)
		return result
	}

	// Resolved names are authoritative, a lookup hit keeps its original
	// casing, so derive from those rather than the raw cells.
	identity := DeriveProductIdentity(brand.Name, variant.Name, size.Name, packType.Name)
	if row.ProductName != "" && model.NameKey(row.ProductName) != model.NameKey(identity.Name) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("provided product name %q differs from derived name %q, derived name used", row.ProductName, identity.Name))
	}

	var taken int64
	err = ing.db.WithContext(ctx).Model(&model.Product{}).
		Where("name = ? OR sku = ?", identity.Name, identity.SKU).
		Count(&taken).Error
	if err != nil {
		result.Error = ing.rowError(row, Internal("product conflict check failed", err))
		return result
	}
	if taken > 0 {
		result.Error = fmt.Sprintf("a live product already exists with name %q or sku %q", identity.Name, identity.SKU)
		return result
	}

	product := model.Product{
		Name:           identity.Name,
		SKU:            identity.SKU,
		Barcode:        identity.Barcode,
		Description:    row.Description,
		Price:          in.price,
		Discount:       in.discount,
		Images:         in.images,
		Thumbnail:      row.Thumbnail,
		Status:         model.ProductStatusQueue,
		ManufacturerID: man.ID,
		BrandID:        brand.ID,
		VariantID:      variant.ID,
		PackSizeID:     size.ID,
		PackTypeID:     packType.ID,
		CategoryID:     cat.ID,
		SubcategoryID:  subcategoryID,
		CreatedBy:      actor,
		UpdatedBy:      actor,
	}
	if err := ing.db.WithContext(ctx).Create(&product).Error; err != nil {
		if IsUniqueViolation(err) {
			result.Error = fmt.Sprintf("duplicate %s for derived identity %q", UniqueScope(err), identity.Name)
			return result
		}
		result.Error = ing.rowError(row, Internal("product creation failed", err))
		return result
	}

	report.EntitiesCreated["products"]++
	prometheus.RecordCatalogOperation("product", "create")
	result.Status = rowStatusSuccess
	result.Product = identity.Name
	result.SKU = identity.SKU
	result.ProductID = &product.ID
	return result
}

// memoResolve consults the run cache before hitting the resolver and keeps
// the created/referenced counters, counting each distinct entity once.
func (ing *Ingestor) memoResolve(memo runCache, report *Report, kind string, parent uuid.UUID, name string, resolve func() (Resolution, error)) (Resolution, error) {
	key := cacheKey(kind, parent, name)
	if hit, ok := memo[key]; ok {
		return hit, nil
	}
	res, err := resolve()
	if err != nil {
		return Resolution{}, err
	}
	memo[key] = res
	if res.Created {
		report.EntitiesCreated[kind]++
	} else {
		report.EntitiesReferenced[kind]++
	}
	return res, nil
}

func (ing *Ingestor) rowError(row Row, err error) string {
	e := AsError(err)
	if e.Code == ErrCodeInternal {
		zap.L().Error("bulk row failed", zap.Int("row", row.Line), zap.Error(err))
	}
	return e.Message
}

type rowInput struct {
	price    decimal.Decimal
	discount int
	images   datatypes.JSON
	warnings []string
}

// validateRow performs all per-row validation before any database access.
func validateRow(row Row) (rowInput, error) {
	var in rowInput

	var missing []string
	for _, f := range []struct{ label, value string }{
		{"product name", row.ProductName},
		{"manufacturer", row.Manufacturer},
		{"brand", row.Brand},
		{"variant", row.Variant},
		{"category", row.Category},
		{"pack size", row.PackSize},
		{"pack type", row.PackType},
	} {
		if f.value == "" {
			missing = append(missing, f.label)
		}
	}
	if len(missing) > 0 {
		return in, BadRequest("missing required field(s): %s", strings.Join(missing, ", "))
	}

	if row.Price == "" {
		in.price = decimal.Zero
		in.warnings = append(in.warnings, "price not provided, product stays queued until published")
	} else {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			return in, BadRequest("invalid price %q", row.Price)
		}
		if price.IsNegative() {
			return in, BadRequest("price cannot be negative")
		}
		in.price = price
	}

	if row.Discount != "" {
		d, err := strconv.Atoi(row.Discount)
		if err != nil || d < 0 || d > 100 {
			return in, BadRequest("discount must be a whole number between 0 and 100, got %q", row.Discount)
		}
		in.discount = d
	}

	if row.Images != "" {
		var urls []string
		for _, u := range strings.Split(row.Images, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			raw, err := json.Marshal(urls)
			if err != nil {
				return in, BadRequest("invalid images list")
			}
			in.images = datatypes.JSON(raw)
		}
	}
	return in, nil
}
