package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeYears_BirthdayBoundary(t *testing.T) {
	birth := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		today time.Time
		want  int
	}{
		{"day before birthday", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), 23},
		{"on birthday", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 24},
		{"day after birthday", time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), 24},
		{"earlier month", time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), 23},
		{"later month", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeYears(birth, tt.today))
		})
	}
}

func TestHeaderLabel(t *testing.T) {
	tests := []struct {
		column string
		want   string
	}{
		{"date_of_birth", "Date Of Birth"},
		{"first_name", "First Name"},
		{"id", "Id"},
		{"age", "Age"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HeaderLabel(tt.column))
	}
}

func TestWithDerivedAge_InsertsAfterGender(t *testing.T) {
	today := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	columns := []string{"first_name", "gender", "date_of_birth"}
	rows := [][]string{{"Ada", "female", "2000-06-15"}}

	outCols, outRows := WithDerivedAge(columns, rows, today)

	assert.Equal(t, []string{"first_name", "gender", "age", "date_of_birth"}, outCols)
	assert.Equal(t, [][]string{{"Ada", "female", "24", "2000-06-15"}}, outRows)
}

func TestWithDerivedAge_AppendsWithoutGender(t *testing.T) {
	today := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	columns := []string{"first_name", "date_of_birth"}
	rows := [][]string{{"Ada", "2000-06-16"}}

	outCols, outRows := WithDerivedAge(columns, rows, today)

	assert.Equal(t, []string{"first_name", "date_of_birth", "age"}, outCols)
	assert.Equal(t, [][]string{{"Ada", "2000-06-16", "23"}}, outRows)
}

func TestWithDerivedAge_NoBirthDateColumn(t *testing.T) {
	today := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	columns := []string{"first_name", "last_name"}
	rows := [][]string{{"Ada", "Lovelace"}}

	outCols, outRows := WithDerivedAge(columns, rows, today)

	assert.Equal(t, columns, outCols)
	assert.Equal(t, rows, outRows)
}

func TestWithDerivedAge_ExistingAgeColumnUntouched(t *testing.T) {
	today := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	columns := []string{"date_of_birth", "age"}
	rows := [][]string{{"2000-06-15", "99"}}

	outCols, outRows := WithDerivedAge(columns, rows, today)

	assert.Equal(t, columns, outCols)
	assert.Equal(t, rows, outRows)
}

func TestWithDerivedAge_UnparseableDateYieldsEmptyCell(t *testing.T) {
	today := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	columns := []string{"date_of_birth"}
	rows := [][]string{{"not-a-date"}, {""}}

	outCols, outRows := WithDerivedAge(columns, rows, today)

	assert.Equal(t, []string{"date_of_birth", "age"}, outCols)
	assert.Equal(t, [][]string{{"not-a-date", ""}, {"", ""}}, outRows)
}

func TestQueryMentionsPatients(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM patients", true},
		{"select id from PATIENTS where 1", true},
		{"SELECT * FROM patients_archive", false},
		{"SELECT * FROM old_patients", false},
		{"SELECT * FROM visits", false},
		{"", false},
		{"SELECT * FROM visits JOIN patients ON 1", true},
		{"SELECT 'patients'", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, queryMentionsPatients(tt.query), "query %q", tt.query)
	}
}
