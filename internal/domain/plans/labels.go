package plans

import "fmt"

// pluralRU выбирает русскую форму: 1/21 — "день", 2-4/22-24 — "дня", 5-20 — "дней".
func pluralRU(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	mod10 := n % 10
	mod100 := n % 100
	if mod10 == 1 && mod100 != 11 {
		return one
	}
	if mod10 >= 2 && mod10 <= 4 && (mod100 < 10 || mod100 >= 20) {
		return few
	}
	return many
}

func pluralSimple(n int, one, many string) string {
	if n == 1 || n == -1 {
		return one
	}
	return many
}

// DurationLabels строит подписи периода на трёх языках: "30 дней" / "30 days" / "30 días".
func DurationLabels(value int, unit string) (ru, en, es string) {
	switch unit {
	case UnitMonths:
		ru = fmt.Sprintf("%d %s", value, pluralRU(value, "месяц", "месяца", "месяцев"))
		en = fmt.Sprintf("%d %s", value, pluralSimple(value, "month", "months"))
		es = fmt.Sprintf("%d %s", value, pluralSimple(value, "mes", "meses"))
	default:
		ru = fmt.Sprintf("%d %s", value, pluralRU(value, "день", "дня", "дней"))
		en = fmt.Sprintf("%d %s", value, pluralSimple(value, "day", "days"))
		es = fmt.Sprintf("%d %s", value, pluralSimple(value, "día", "días"))
	}
	return ru, en, es
}
