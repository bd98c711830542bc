package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ostrin/searchbot/internal/domain/quota"
)

// QuotasXLSX собирает выгрузку проекции лимитов для админки.
func QuotasXLSX(snaps []quota.Snapshot) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"user_id",
		"plan_code",
		"plan_title",
		"daily_limit",
		"used_today",
		"remaining_today",
		"last_reset_date",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	row := 2
	for _, s := range snaps {
		cells := []interface{}{
			s.UserID,
			s.PlanCode,
			s.PlanTitle,
			s.DailyLimit,
			s.UsedToday,
			s.RemainingToday,
			s.LastResetDate,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return nil, err
		}
		row++
	}

	return f.WriteToBuffer()
}
