package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
)

func TestDate_AddMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		date domain.Date
		n    int
		want domain.Date
	}{
		{"plain", domain.NewDate(2025, time.April, 10), 1, domain.NewDate(2025, time.May, 10)},
		{"clamped to february", domain.NewDate(2025, time.January, 31), 1, domain.NewDate(2025, time.February, 28)},
		{"leap year", domain.NewDate(2024, time.January, 31), 1, domain.NewDate(2024, time.February, 29)},
		{"across year", domain.NewDate(2025, time.December, 15), 1, domain.NewDate(2026, time.January, 15)},
		{"yearly from leap day", domain.NewDate(2024, time.February, 29), 12, domain.NewDate(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.date.AddMonths(tt.n))
		})
	}
}

func TestMonthBounds(t *testing.T) {
	t.Parallel()

	first, last := domain.MonthBounds(2024, time.February)
	assert.Equal(t, domain.NewDate(2024, time.February, 1), first)
	assert.Equal(t, domain.NewDate(2024, time.February, 29), last)

	first, last = domain.MonthBounds(2025, time.December)
	assert.Equal(t, domain.NewDate(2025, time.December, 1), first)
	assert.Equal(t, domain.NewDate(2025, time.December, 31), last)
}

func TestDate_JSON(t *testing.T) {
	t.Parallel()

	var v struct {
		Due domain.Date `json:"due"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"due":"2025-04-10"}`), &v))
	assert.Equal(t, domain.NewDate(2025, time.April, 10), v.Due)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2025-04-10"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"due":"10/04/2025"}`), &v))
}

func TestBill_NextDueDate(t *testing.T) {
	t.Parallel()

	due := domain.NewDate(2025, time.January, 31)

	tests := []struct {
		name   string
		bill   domain.Bill
		want   domain.Date
		wantOK bool
	}{
		{"one-off", domain.Bill{DueDate: due}, domain.Date{}, false},
		{"weekly", domain.Bill{DueDate: due, Recurrent: true, Frequency: domain.FrequencyWeekly}, domain.NewDate(2025, time.February, 7), true},
		{"monthly", domain.Bill{DueDate: due, Recurrent: true, Frequency: domain.FrequencyMonthly}, domain.NewDate(2025, time.February, 28), true},
		{"yearly", domain.Bill{DueDate: due, Recurrent: true, Frequency: domain.FrequencyYearly}, domain.NewDate(2026, time.January, 31), true},
		{"recurrent without frequency", domain.Bill{DueDate: due, Recurrent: true}, domain.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.bill.NextDueDate()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
