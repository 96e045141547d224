package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Identity is the derived naming contract of a product. Every value is a
// function of the four ancestor names alone; two products with the same
// ancestor chain always derive the same identity. The bulk pipeline and the
// cascade engine both call DeriveProductIdentity, never their own formula.
type Identity struct {
	Name    string `json:"name"`
	SKU     string `json:"sku"`
	Barcode string `json:"barcode"`
}

// NoLower keeps acronyms like "UHT" intact while still capitalizing the
// first letter of each word.
var titleCaser = cases.Title(language.English, cases.NoLower)

// NormalizeName trims, collapses internal whitespace and title-cases a raw
// name. Applied once when an entity is first created; afterwards the stored
// casing is authoritative and lookups match case-insensitively.
func NormalizeName(raw string) string {
	return titleCaser.String(strings.Join(strings.Fields(raw), " "))
}

// DeriveProductIdentity computes the display name, SKU and EAN-13 barcode
// for the given ancestor names.
func DeriveProductIdentity(brand, variant, packSize, packType string) Identity {
	fields := []string{skuField(brand), skuField(variant), skuField(packSize), skuField(packType)}
	parts := fields[:0]
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return Identity{
		Name:    fmt.Sprintf("%s %s %s (%s)", brand, variant, packSize, packType),
		SKU:     strings.Join(parts, "-"),
		Barcode: GenerateEAN13(brand, variant, packSize, packType),
	}
}

// skuField uppercases one identity field and collapses every run of
// non-alphanumeric characters into a single hyphen, so "Chicken Curry"
// becomes "CHICKEN-CURRY" and "70g" becomes "70G".
func skuField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}
