package catalog

import (
	"fmt"
	"hash/fnv"

	"catalog-service/internal/model"
)

// EAN-13 layout: 3-digit country prefix + 4-digit manufacturer code +
// 5-digit product code + check digit. UPC-A drops the country prefix for a
// single system digit and widens the manufacturer code to 5 digits.
const (
	ean13Prefix = "615"
	upcaSystem  = "0"
	ean13Length = 13
	upcaLength  = 12
)

// knownManufacturerCodes pins stable codes for house brands that predate
// hashed allocation. Unlisted brands fold their name through fnv so
// regenerated barcodes stay stable across runs.
var knownManufacturerCodes = map[string]string{
	"indomie":      "6251",
	"nestle":       "6252",
	"peak":         "6253",
	"milo":         "6254",
	"maggi":        "6255",
	"golden penny": "6256",
	"coca-cola":    "6257",
	"dangote":      "6258",
}

// GenerateEAN13 derives the 13-digit barcode for an ancestor name tuple.
func GenerateEAN13(brand, variant, packSize, packType string) string {
	body := ean13Prefix + manufacturerCode(brand, 4) + productCode(variant, packSize, packType)
	return body + digitString(checkDigit(body, 1, 3))
}

// ValidateEAN13 reports whether code is a well-formed EAN-13 barcode whose
// check digit matches the weighted sum of its 12 leading digits.
func ValidateEAN13(code string) bool {
	if len(code) != ean13Length || !allDigits(code) {
		return false
	}
	body := code[:ean13Length-1]
	return digitString(checkDigit(body, 1, 3)) == code[ean13Length-1:]
}

// GenerateUPCA derives the 12-digit UPC-A barcode for an ancestor name
// tuple. Weights are reversed relative to EAN-13 because the leading digit
// count is odd.
func GenerateUPCA(brand, variant, packSize, packType string) string {
	body := upcaSystem + manufacturerCode(brand, 5) + productCode(variant, packSize, packType)
	return body + digitString(checkDigit(body, 3, 1))
}

// ValidateUPCA reports whether code is a well-formed UPC-A barcode.
func ValidateUPCA(code string) bool {
	if len(code) != upcaLength || !allDigits(code) {
		return false
	}
	body := code[:upcaLength-1]
	return digitString(checkDigit(body, 3, 1)) == code[upcaLength-1:]
}

// manufacturerCode resolves the known-table entry for a brand, else folds
// the brand name to the requested digit width. Lookup and folding both run
// on the case-insensitive key so casing never changes a barcode.
func manufacturerCode(brand string, width int) string {
	key := model.NameKey(brand)
	if code, ok := knownManufacturerCodes[key]; ok && len(code) == width {
		return code
	}
	return fold(key, width)
}

func productCode(variant, packSize, packType string) string {
	return fold(model.NameKey(variant)+"|"+model.NameKey(packSize)+"|"+model.NameKey(packType), 5)
}

// fold hashes s with fnv-1a and reduces it to a zero-padded decimal string
// of the given width.
func fold(s string, width int) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	mod := uint32(1)
	for i := 0; i < width; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", width, h.Sum32()%mod)
}

// checkDigit runs the weighted-sum-mod-10 algorithm over body. Weights
// alternate starting at first for the leftmost digit.
func checkDigit(body string, first, second int) int {
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 0 {
			sum += d * first
		} else {
			sum += d * second
		}
	}
	return (10 - sum%10) % 10
}

func digitString(d int) string {
	return string(rune('0' + d))
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
