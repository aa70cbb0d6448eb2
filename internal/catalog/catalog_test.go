package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityOrderTotality(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		order := PriorityOrder(hour)
		require.Len(t, order, 6, "hour %d", hour)

		seen := make(map[string]bool)
		for _, c := range order {
			require.False(t, seen[c.SiteID], "hour %d repeats %s", hour, c.Name)
			seen[c.SiteID] = true
		}
	}
}

func TestPriorityOrderPermutations(t *testing.T) {
	names := func(cs []Court) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.Name
		}
		return out
	}

	morning := []string{
		"Octagon Tennis 1", "Octagon Tennis 4", "Octagon Tennis 3",
		"Octagon Tennis 6", "Octagon Tennis 2", "Octagon Tennis 5",
	}
	afternoon := []string{
		"Octagon Tennis 6", "Octagon Tennis 3", "Octagon Tennis 4",
		"Octagon Tennis 1", "Octagon Tennis 5", "Octagon Tennis 2",
	}

	for hour := 0; hour < 12; hour++ {
		require.Equal(t, morning, names(PriorityOrder(hour)), "hour %d", hour)
	}
	for hour := 12; hour < 24; hour++ {
		require.Equal(t, afternoon, names(PriorityOrder(hour)), "hour %d", hour)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
		ok   bool
	}{
		{name: "by site id", ref: "f3794e38-71ac-4440-9f3b-1adce02df1d7", want: "Octagon Tennis 6", ok: true},
		{name: "by display name", ref: "Octagon Tennis 2", want: "Octagon Tennis 2", ok: true},
		{name: "case insensitive", ref: "octagon tennis 5", want: "Octagon Tennis 5", ok: true},
		{name: "padded", ref: "  Octagon Tennis 3 ", want: "Octagon Tennis 3", ok: true},
		{name: "unknown", ref: "Center Court", ok: false},
		{name: "empty", ref: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Resolve(tt.ref)
			if !tt.ok {
				var ure *UnknownResourceError
				require.ErrorAs(t, err, &ure)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, c.Name)
		})
	}
}

func TestCheckboxMappingDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range All() {
		require.NotEmpty(t, c.CheckboxID)
		require.NotEqual(t, c.SiteID, c.CheckboxID)
		require.False(t, seen[c.CheckboxID])
		seen[c.CheckboxID] = true
	}
}
