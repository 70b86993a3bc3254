package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodesAreUnique(t *testing.T) {
	t.Parallel()

	for name, list := range map[string][]string{"fields": FieldCodes(), "regions": RegionCodes()} {
		seen := map[string]bool{}
		for _, code := range list {
			require.NotEmpty(t, code, name)
			require.False(t, seen[code], "%s: duplicate code %s", name, code)
			seen[code] = true
		}
	}
	require.Len(t, RegionCodes(), 21)
}

func TestNameLookup(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Data/IT", FieldName("apaJ_2ja_LuF"))
	require.Equal(t, "Stockholms län", RegionName("CifL_Rzy_Mku"))
	require.Equal(t, "unknown-code", RegionName("unknown-code"))
}

func TestEntriesReturnCopies(t *testing.T) {
	t.Parallel()

	got := Fields()
	got[0].Name = "changed"
	require.Equal(t, "Data/IT", FieldName("apaJ_2ja_LuF"))
}
