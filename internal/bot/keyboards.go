package bot

import (
	"strconv"

	"coinkeeper/internal/core"
	"coinkeeper/internal/flow"
)

const (
	categoriesPerRow = 2
	daysPerRow       = 7
)

func mainMenu(registered bool) [][]string {
	if !registered {
		return [][]string{
			{LabelRegister},
			{LabelProfile, LabelAbout},
		}
	}
	return [][]string{
		{LabelAddIncome, LabelAddExpense},
		{LabelStats, LabelProfile},
		{LabelAbout},
	}
}

func cancelMenu() [][]string {
	return [][]string{{LabelCancel}}
}

var periodLabels = []struct {
	period core.Period
	label  string
}{
	{core.PeriodDay, "today"},
	{core.PeriodWeek, "this week"},
	{core.PeriodMonth, "this month"},
	{core.PeriodRange, "date range"},
}

// statsOptions lays out two buttons per row, incomes first.
func statsOptions() [][]Option {
	var all []Option
	for _, kind := range core.Kinds() {
		for _, pl := range periodLabels {
			all = append(all, Option{
				Label:   kindTitle(kind) + " " + pl.label,
				Payload: statsPayload(kind, pl.period),
			})
		}
	}
	rows := make([][]Option, 0, len(all)/2)
	for i := 0; i < len(all); i += 2 {
		rows = append(rows, all[i:min(i+2, len(all))])
	}
	return rows
}

func categoryOptions(cats []core.Category) [][]Option {
	rows := make([][]Option, 0, (len(cats)+categoriesPerRow-1)/categoriesPerRow)
	for i := 0; i < len(cats); i += categoriesPerRow {
		end := min(i+categoriesPerRow, len(cats))
		row := make([]Option, 0, end-i)
		for _, c := range cats[i:end] {
			row = append(row, Option{Label: c.Name, Payload: flow.CategoryPayload(c)})
		}
		rows = append(rows, row)
	}
	return rows
}

// dayOptions offers every day of the month containing today.
func dayOptions(today core.Date) [][]Option {
	last := today.DaysInMonth()
	rows := make([][]Option, 0, (last+daysPerRow-1)/daysPerRow)
	for start := 1; start <= last; start += daysPerRow {
		end := min(start+daysPerRow-1, last)
		row := make([]Option, 0, end-start+1)
		for day := start; day <= end; day++ {
			row = append(row, Option{Label: strconv.Itoa(day), Payload: flow.DayPayload(day)})
		}
		rows = append(rows, row)
	}
	return rows
}
