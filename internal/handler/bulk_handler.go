package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"catalog-service/internal/catalog"
	"catalog-service/pkg/config"
	"catalog-service/pkg/logger"
)

// BulkHandler serves the spreadsheet upload endpoint and its CSV template
type BulkHandler struct {
	ingestor *catalog.Ingestor
	cfg      config.BulkConfig
}

func NewBulkHandler(ingestor *catalog.Ingestor, cfg config.BulkConfig) *BulkHandler {
	return &BulkHandler{ingestor: ingestor, cfg: cfg}
}

// Upload ingests a CSV or Excel file of catalog rows. File-level problems
// (missing file, unknown format, missing columns) fail the request; row
// failures are reported inside the 200 response body.
func (h *BulkHandler) Upload(c echo.Context) error {
	log := logger.FromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warn("Bulk upload without file part", zap.Error(err))
		return fail(c, catalog.BadRequest("missing file upload field %q", "file"))
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return fail(c, catalog.Internal("failed to read uploaded file", err))
	}
	defer src.Close()

	rows, err := catalog.ParseUpload(fileHeader.Filename, src, h.cfg.MaxRows)
	if err != nil {
		return fail(c, err)
	}
	if len(rows) == 0 {
		return fail(c, catalog.BadRequest("file contains no data rows"))
	}

	log.Info("Bulk upload accepted",
		zap.String("filename", fileHeader.Filename),
		zap.Int("rows", len(rows)))

	report := h.ingestor.Ingest(c.Request().Context(), rows, actor(c))
	return c.JSON(http.StatusOK, report)
}

// Template serves the downloadable CSV template with the expected header
// and two sample rows
func (h *BulkHandler) Template(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="catalog_upload_template.csv"`)
	return c.Blob(http.StatusOK, "text/csv", catalog.Template())
}
