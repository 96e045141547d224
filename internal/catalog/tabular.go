package catalog

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one normalized data row from an uploaded catalog file. Line is the
// 1-based position in the file; the header occupies line 1, so data starts
// at line 2. Cells are trimmed but otherwise untouched, numeric fields stay
// strings until row validation.
type Row struct {
	Line                   int
	ProductName            string
	Manufacturer           string
	Brand                  string
	Variant                string
	Category               string
	Subcategory            string
	SubcategoryDescription string
	PackSize               string
	PackType               string
	Description            string
	Price                  string
	Discount               string
	Images                 string
	Thumbnail              string
}

var requiredColumns = []string{
	"product_name", "manufacturer", "brand", "variant",
	"category", "pack_size", "pack_type",
}

// ParseUpload dispatches on the file extension. maxRows bounds the number
// of data rows accepted before the parse fails outright.
func ParseUpload(filename string, r io.Reader, maxRows int) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r, maxRows)
	case ".xlsx", ".xlsm":
		return ParseXLSX(r, maxRows)
	default:
		return nil, BadRequest("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(filename))
	}
}

// ParseCSV reads a header row plus data rows. Header matching is forgiving:
// case, surrounding space, and space-vs-underscore differences are ignored.
func ParseCSV(r io.Reader, maxRows int) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, BadRequest("file is empty")
	}
	if err != nil {
		return nil, BadRequest("unreadable csv header: %v", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, BadRequest("unreadable csv record at line %d: %v", line, err)
		}
		if blankRecord(record) {
			continue
		}
		if len(rows) >= maxRows {
			return nil, BadRequest("file exceeds the maximum of %d data rows", maxRows)
		}
		rows = append(rows, buildRow(line, cols, record))
	}
	return rows, nil
}

// ParseXLSX reads the first worksheet of an Excel workbook with the same
// header contract as ParseCSV.
func ParseXLSX(r io.Reader, maxRows int) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, BadRequest("unreadable workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, BadRequest("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, BadRequest("unreadable sheet %q: %v", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, BadRequest("file is empty")
	}
	cols, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, record := range records[1:] {
		if blankRecord(record) {
			continue
		}
		if len(rows) >= maxRows {
			return nil, BadRequest("file exceeds the maximum of %d data rows", maxRows)
		}
		rows = append(rows, buildRow(i+2, cols, record))
	}
	return rows, nil
}

// Template returns the downloadable CSV template: the canonical header and
// two illustrative rows.
func Template() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{
		"product name", "manufacturer", "brand", "variant", "category",
		"pack size", "pack type", "description", "price", "discount",
		"subcategory", "subcategory description", "images", "thumbnail",
	})
	w.Write([]string{
		"Indomie Chicken Curry 70g (Single Pack)", "Nestle", "Indomie", "Chicken Curry", "Food",
		"70g", "Single Pack", "Instant noodles, chicken curry flavour", "150.00", "0",
		"Noodles", "Instant and cup noodles", "https://cdn.example.com/indomie-70g.jpg", "",
	})
	w.Write([]string{
		"Indomie Chicken Curry 120g (Twin Pack)", "Nestle", "Indomie", "Chicken Curry", "Food",
		"120g", "Twin Pack", "", "", "",
		"", "", "", "",
	})
	w.Flush()
	return buf.Bytes()
}

// mapHeader resolves each canonical column name to its index in the file.
func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := canonicalHeader(h)
		if key == "" {
			continue
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	var missing []string
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, strings.ReplaceAll(want, "_", " "))
		}
	}
	if len(missing) > 0 {
		return nil, BadRequest("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func canonicalHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func buildRow(line int, cols map[string]int, record []string) Row {
	cell := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return Row{
		Line:                   line,
		ProductName:            cell("product_name"),
		Manufacturer:           cell("manufacturer"),
		Brand:                  cell("brand"),
		Variant:                cell("variant"),
		Category:               cell("category"),
		Subcategory:            cell("subcategory"),
		SubcategoryDescription: cell("subcategory_description"),
		PackSize:               cell("pack_size"),
		PackType:               cell("pack_type"),
		Description:            cell("description"),
		Price:                  cell("price"),
		Discount:               cell("discount"),
		Images:                 cell("images"),
		Thumbnail:              cell("thumbnail"),
	}
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
