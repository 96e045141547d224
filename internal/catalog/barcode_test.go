package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateEAN13(t *testing.T) {
	code := GenerateEAN13("Indomie", "Chicken Curry", "70g", "Single Pack")

	require.Len(t, code, 13)
	require.True(t, ValidateEAN13(code))
	// country prefix followed by the pinned code for a house brand
	require.True(t, strings.HasPrefix(code, "6156251"), code)
}

func TestGenerateEAN13_StableAcrossCasing(t *testing.T) {
	require.Equal(t,
		GenerateEAN13("INDOMIE", "CHICKEN CURRY", "70G", "SINGLE PACK"),
		GenerateEAN13("indomie", "chicken  curry", "70g", "single pack"))
}

func TestGenerateEAN13_UnlistedBrandFoldsToStableCode(t *testing.T) {
	first := GenerateEAN13("Golden Harvest", "Basmati", "5kg", "Bag")
	second := GenerateEAN13("Golden Harvest", "Basmati", "5kg", "Bag")

	require.Equal(t, first, second)
	require.Len(t, first, 13)
	require.True(t, ValidateEAN13(first))
	require.True(t, strings.HasPrefix(first, "615"))
}

func TestValidateEAN13_AcceptsPublishedCode(t *testing.T) {
	require.True(t, ValidateEAN13("4006381333931"))
}

func TestValidateEAN13_Rejects(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"wrong check digit", "4006381333932"},
		{"too short", "400638133393"},
		{"too long", "40063813339310"},
		{"non digit", "40063813339a1"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, ValidateEAN13(tt.code))
		})
	}
}

func TestValidateEAN13_AnySingleDigitChangeFails(t *testing.T) {
	code := GenerateEAN13("Peak", "Full Cream", "400g", "Tin")
	require.True(t, ValidateEAN13(code))

	for i := 0; i < len(code); i++ {
		mutated := []byte(code)
		mutated[i] = '0' + byte((int(code[i]-'0')+1)%10)
		require.False(t, ValidateEAN13(string(mutated)), "digit %d", i)
	}
}

func TestGenerateUPCA(t *testing.T) {
	code := GenerateUPCA("Indomie", "Chicken Curry", "70g", "Single Pack")

	require.Len(t, code, 12)
	require.True(t, ValidateUPCA(code))
	require.True(t, strings.HasPrefix(code, "0"))
}

func TestValidateUPCA_AcceptsPublishedCode(t *testing.T) {
	require.True(t, ValidateUPCA("036000291452"))
}

func TestValidateUPCA_Rejects(t *testing.T) {
	require.False(t, ValidateUPCA("036000291453"))
	require.False(t, ValidateUPCA("03600029145"))
	require.False(t, ValidateUPCA("03600029145x"))
	require.False(t, ValidateUPCA(""))
}
