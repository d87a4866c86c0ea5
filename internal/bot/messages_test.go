package bot

import (
	"strings"
	"testing"

	"coinkeeper/internal/core"
	"coinkeeper/internal/stats"
)

func TestReportFitsOneMessage(t *testing.T) {
	month := core.MonthWindow(core.NewDate(2025, 1, 15))
	long := strings.Repeat("💸", core.MaxDescriptionLength)

	tests := []struct {
		name     string
		rows     int
		desc     string
		wantMore bool
	}{
		{name: "few short rows", rows: 3, desc: "bread"},
		{name: "row cap", rows: 120, desc: "bread", wantMore: true},
		{name: "longest descriptions", rows: 40, desc: long, wantMore: true},
		{name: "many long rows", rows: 500, desc: strings.Repeat("x", core.MaxDescriptionLength), wantMore: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := stats.Report{Kind: core.KindExpense, Window: month}
			for i := 0; i < tt.rows; i++ {
				amount := core.Money{Cents: 123456}
				r.Details = append(r.Details, core.Detail{
					Date:        month.From.AddDays(i % 31),
					Category:    "Entertainment",
					Description: tt.desc,
					Amount:      amount,
				})
				r.Total = r.Total.Add(amount)
			}
			r.ByCategory = []core.CategoryAmount{{Name: "Entertainment", Amount: r.Total}}

			text := report(r)
			if n := utf16Len(text); n > 4096 {
				t.Fatalf("report is %d UTF-16 units, Telegram accepts 4096", n)
			}
			if got := strings.Contains(text, "more"); got != tt.wantMore {
				t.Fatalf("omitted rows note = %v, want %v\n%s", got, tt.wantMore, text)
			}
			if !strings.Contains(text, "Total: "+r.Total.String()) {
				t.Fatalf("total missing:\n%s", text)
			}

			listed := strings.Count(text, "Entertainment  ")
			if !tt.wantMore && listed != tt.rows {
				t.Fatalf("listed %d rows, want %d", listed, tt.rows)
			}
			if tt.wantMore && !strings.Contains(text, "... and ") {
				t.Fatalf("missing omitted rows count:\n%s", text)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"bread", 10, "bread"},
		{"abcdef", 6, "abcdef"},
		{"abcdefg", 6, "abcde…"},
		{"кофе с молоком", 5, "кофе…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
