package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"trims and collapses whitespace", "  chicken   curry ", "Chicken Curry"},
		{"title cases each word", "golden penny", "Golden Penny"},
		{"keeps acronyms intact", "UHT milk", "UHT Milk"},
		{"capitalizes after leading digits", "70g", "70G"},
		{"keeps hyphenated names", "coca-cola", "Coca-Cola"},
		{"empty input", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeName(tt.raw))
		})
	}
}

func TestDeriveProductIdentity(t *testing.T) {
	got := DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Single Pack")

	require.Equal(t, "Indomie Chicken Curry 70g (Single Pack)", got.Name)
	require.Equal(t, "INDOMIE-CHICKEN-CURRY-70G-SINGLE-PACK", got.SKU)
	require.True(t, ValidateEAN13(got.Barcode))
}

func TestDeriveProductIdentity_DistinctPerPack(t *testing.T) {
	single := DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Single Pack")
	twin := DeriveProductIdentity("Indomie", "Chicken Curry", "120g", "Twin Pack")

	require.Equal(t, "INDOMIE-CHICKEN-CURRY-120G-TWIN-PACK", twin.SKU)
	require.NotEqual(t, single.Name, twin.Name)
	require.NotEqual(t, single.SKU, twin.SKU)
	require.NotEqual(t, single.Barcode, twin.Barcode)
}

func TestDeriveProductIdentity_CollapsesPunctuationInSKU(t *testing.T) {
	got := DeriveProductIdentity("Coca-Cola", "Zero Sugar", "33cl", "Glass Bottle")
	require.Equal(t, "COCA-COLA-ZERO-SUGAR-33CL-GLASS-BOTTLE", got.SKU)
}

func TestDeriveProductIdentity_TrimsEdgePunctuation(t *testing.T) {
	got := DeriveProductIdentity("Indomie.", "Chicken  Curry", "70g!", "(Single Pack)")
	require.Equal(t, "INDOMIE-CHICKEN-CURRY-70G-SINGLE-PACK", got.SKU)
}

// Two pack types that differ only in punctuation keep distinct display names
// but strip to the same SKU.
func TestDeriveProductIdentity_PunctuationConvergesOnSKU(t *testing.T) {
	a := DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Twin Pack")
	b := DeriveProductIdentity("Indomie", "Chicken Curry", "70g", "Twin-Pack")

	require.NotEqual(t, a.Name, b.Name)
	require.Equal(t, a.SKU, b.SKU)
}
