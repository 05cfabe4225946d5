package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Period
		wantErr bool
	}{
		{name: "year month", input: "2024-03", want: Period{Year: 2024, Month: time.March}},
		{name: "full date", input: "2024-03-15", want: Period{Year: 2024, Month: time.March}},
		{name: "day first", input: "13/2/2024", want: Period{Year: 2024, Month: time.February}},
		{name: "day first zero padded", input: "01/12/2024", want: Period{Year: 2024, Month: time.December}},
		{name: "surrounding spaces", input: "  2024-07  ", want: Period{Year: 2024, Month: time.July}},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "marzo", wantErr: true},
		{name: "month out of range", input: "2024-13", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "2024-03", Period{Year: 2024, Month: time.March}.String())
	assert.Equal(t, "2024-11", Period{Year: 2024, Month: time.November}.String())
}

func TestPeriodDaysInMonth(t *testing.T) {
	tests := []struct {
		period Period
		days   int
	}{
		{Period{Year: 2024, Month: time.January}, 31},
		{Period{Year: 2024, Month: time.February}, 29}, // leap year
		{Period{Year: 2023, Month: time.February}, 28},
		{Period{Year: 2024, Month: time.September}, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.days, tt.period.DaysInMonth(), "period %s", tt.period)
	}
}

func TestPeriodCompare(t *testing.T) {
	jan := Period{Year: 2024, Month: time.January}
	feb := Period{Year: 2024, Month: time.February}

	assert.True(t, jan.Before(feb))
	assert.False(t, feb.Before(jan))
	assert.Equal(t, -1, jan.Compare(feb))
	assert.Equal(t, 1, feb.Compare(jan))
	assert.Equal(t, 0, jan.Compare(jan))
	assert.Equal(t, feb, jan.Next())
	assert.Equal(t, Period{Year: 2025, Month: time.January}, Period{Year: 2024, Month: time.December}.Next())
}

func TestPeriodRange(t *testing.T) {
	r := PeriodRange{
		Start: MustParsePeriod("2024-01"),
		End:   MustParsePeriod("2024-03"),
	}

	assert.True(t, r.Contains(MustParsePeriod("2024-01")))
	assert.True(t, r.Contains(MustParsePeriod("2024-03")))
	assert.False(t, r.Contains(MustParsePeriod("2023-12")))
	assert.False(t, r.Contains(MustParsePeriod("2024-04")))

	periods := r.Periods()
	require.Len(t, periods, 3)
	assert.Equal(t, MustParsePeriod("2024-01"), periods[0])
	assert.Equal(t, MustParsePeriod("2024-03"), periods[2])
}

func TestPeriodJSONRoundTrip(t *testing.T) {
	p := MustParsePeriod("2024-09")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"2024-09"`, string(data))

	var back Period
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
}
