package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeBase(t *testing.T) {
	cases := map[string]string{
		"Premium":          "premium",
		"Start 30":         "start_30",
		"  Mega  Plan!  ":  "mega_plan",
		"Тариф":            "plan", // не-латиница схлопывается целиком
		"a--b..c":          "a_b_c",
		"42":               "42",
		"___":              "plan",
		"Pro (extended)":   "pro_extended",
	}
	for in, want := range cases {
		assert.Equal(t, want, CodeBase(in), "title=%q", in)
	}
}

func TestPlanValidate(t *testing.T) {
	valid := Plan{Title: "Premium", DailyLimit: 100, Price: 499, DurationValue: 30, DurationUnit: UnitDays}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		mut  func(p *Plan)
	}{
		{"empty title", func(p *Plan) { p.Title = "  " }},
		{"negative limit", func(p *Plan) { p.DailyLimit = -1 }},
		{"negative price", func(p *Plan) { p.Price = -0.01 }},
		{"zero duration", func(p *Plan) { p.DurationValue = 0 }},
		{"bad unit", func(p *Plan) { p.DurationUnit = "weeks" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := valid
			c.mut(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestRemaining(t *testing.T) {
	p := Plan{DailyLimit: 5}
	assert.Equal(t, 5, p.Remaining(0))
	assert.Equal(t, 1, p.Remaining(4))
	assert.Equal(t, 0, p.Remaining(5))
	assert.Equal(t, 0, p.Remaining(9)) // перелимит не уходит в минус
}
