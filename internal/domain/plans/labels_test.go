package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDurationLabelsDays(t *testing.T) {
	cases := []struct {
		n  int
		ru string
		en string
		es string
	}{
		{1, "1 день", "1 day", "1 día"},
		{2, "2 дня", "2 days", "2 días"},
		{4, "4 дня", "4 days", "4 días"},
		{5, "5 дней", "5 days", "5 días"},
		{11, "11 дней", "11 days", "11 días"},
		{14, "14 дней", "14 days", "14 días"},
		{20, "20 дней", "20 days", "20 días"},
		{21, "21 день", "21 days", "21 días"},
		{22, "22 дня", "22 days", "22 días"},
		{24, "24 дня", "24 days", "24 días"},
		{25, "25 дней", "25 days", "25 días"},
		{30, "30 дней", "30 days", "30 días"},
		{111, "111 дней", "111 days", "111 días"},
		{121, "121 день", "121 days", "121 días"},
	}
	for _, c := range cases {
		ru, en, es := DurationLabels(c.n, UnitDays)
		assert.Equal(t, c.ru, ru, "n=%d", c.n)
		assert.Equal(t, c.en, en, "n=%d", c.n)
		assert.Equal(t, c.es, es, "n=%d", c.n)
	}
}

func TestDurationLabelsMonths(t *testing.T) {
	cases := []struct {
		n  int
		ru string
		en string
		es string
	}{
		{1, "1 месяц", "1 month", "1 mes"},
		{2, "2 месяца", "2 months", "2 meses"},
		{5, "5 месяцев", "5 months", "5 meses"},
		{11, "11 месяцев", "11 months", "11 meses"},
		{12, "12 месяцев", "12 months", "12 meses"},
		{21, "21 месяц", "21 months", "21 meses"},
	}
	for _, c := range cases {
		ru, en, es := DurationLabels(c.n, UnitMonths)
		assert.Equal(t, c.ru, ru, "n=%d", c.n)
		assert.Equal(t, c.en, en, "n=%d", c.n)
		assert.Equal(t, c.es, es, "n=%d", c.n)
	}
}
