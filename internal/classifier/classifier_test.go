package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-rppg/internal/models"
)

func in(hr, hrv float64, redness ...float64) Inputs {
	i := Inputs{HeartRateBPM: hr, HRVMs: hrv}
	if len(redness) > 0 {
		i.Redness = models.Float64Ptr(redness[0])
	}
	return i
}

func TestRednessAware(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		want string
	}{
		{"sober", in(50, 45, 20), models.LabelSober},
		{"tipsy by heart", in(95, 25, 40), models.LabelTipsy},
		{"extremely drunk by heart", in(120, 10, 10), models.LabelExtremelyDrunk},
		{"gap between bands", in(80, 35, 60), models.LabelUnknown},
		{"tipsy by redness", in(70, 45, 75), models.LabelTipsy},
		{"extremely drunk by redness", in(70, 45, 100), models.LabelExtremelyDrunk},
		{"sober rule wins first", in(80, 45, 10), models.LabelSober},
		{"redness 50 to 70 is a gap", in(80, 45, 55), models.LabelUnknown},
		{"hrv boundary 40 is tipsy", in(95, 40, 60), models.LabelTipsy},
		{"hr boundary 110 is not tipsy", in(110, 25, 60), models.LabelUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, RednessAware.Classify(c.in))
		})
	}
}

func TestRednessAware_MissingRedness(t *testing.T) {
	// without redness only the heart parts of the rules can match
	assert.Equal(t, models.LabelUnknown, RednessAware.Classify(in(50, 45)))
	assert.Equal(t, models.LabelTipsy, RednessAware.Classify(in(95, 25)))
	assert.Equal(t, models.LabelExtremelyDrunk, RednessAware.Classify(in(120, 10)))
}

func TestHeartOnly(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		want string
	}{
		{"slow heart", in(55, 10), models.LabelSober},
		{"high variability", in(100, 60), models.LabelSober},
		{"tipsy", in(75, 40), models.LabelTipsy},
		{"extremely drunk", in(95, 20), models.LabelExtremelyDrunk},
		{"gap", in(75, 20), models.LabelUnknown},
		{"redness ignored", in(75, 40, 150), models.LabelTipsy},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, HeartOnly.Classify(c.in))
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	always := func(Inputs) bool { return true }
	table := NewTable("test", Rule{Label: "a", Match: always}, Rule{Label: "b", Match: always})
	assert.Equal(t, "a", table.Classify(Inputs{}))
	assert.Equal(t, models.LabelUnknown, NewTable("empty").Classify(Inputs{}))
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable("redness")
	require.NoError(t, err)
	assert.Same(t, RednessAware, table)

	table, err = ParseTable(" Heart ")
	require.NoError(t, err)
	assert.Equal(t, "heart", table.Name())

	_, err = ParseTable("vibes")
	assert.Error(t, err)
}
