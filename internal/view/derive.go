package view

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/wardbook/internal/record"
)

// Column names the derived-column policy keys on.
const (
	birthDateColumn = "date_of_birth"
	genderColumn    = "gender"
	ageColumn       = "age"
)

var titleCaser = cases.Title(language.English)

// AgeYears returns the floor of elapsed years between birth and today,
// adjusted down by one when today's (month, day) precedes the birth
// (month, day). The boundary falls exactly on the birthday.
func AgeYears(birth, today time.Time) int {
	years := today.Year() - birth.Year()
	if today.Month() < birth.Month() ||
		(today.Month() == birth.Month() && today.Day() < birth.Day()) {
		years--
	}
	return years
}

// HeaderLabel derives a display label from a raw column name by splitting
// on underscores and title-casing each word: "date_of_birth" -> "Date Of Birth".
func HeaderLabel(column string) string {
	words := strings.Split(column, "_")
	for i, w := range words {
		words[i] = titleCaser.String(w)
	}
	return strings.Join(words, " ")
}

// HeaderLabels derives display labels for every column.
func HeaderLabels(columns []string) []string {
	labels := make([]string, len(columns))
	for i, c := range columns {
		labels[i] = HeaderLabel(c)
	}
	return labels
}

// WithDerivedAge applies the console's derived-column policy: when a result
// contains a date_of_birth column (and no age column already), an
// age-in-years column is computed per row and inserted immediately after the
// gender column if present, otherwise appended at the end.
//
// Rows with an unparseable birth date get an empty age cell; derivation is
// presentation-only and never fails the query.
func WithDerivedAge(columns []string, rows [][]string, today time.Time) ([]string, [][]string) {
	dobIdx := indexOf(columns, birthDateColumn)
	if dobIdx < 0 || indexOf(columns, ageColumn) >= 0 {
		return columns, rows
	}

	// Insert position: right after gender, else at the end.
	insertAt := len(columns)
	if g := indexOf(columns, genderColumn); g >= 0 {
		insertAt = g + 1
	}

	outCols := insertString(columns, insertAt, ageColumn)
	outRows := make([][]string, len(rows))
	for i, row := range rows {
		age := ""
		if dobIdx < len(row) {
			if birth, err := time.Parse(record.DateLayout, row[dobIdx]); err == nil {
				age = strconv.Itoa(AgeYears(birth, today))
			}
		}
		outRows[i] = insertString(row, insertAt, age)
	}

	return outCols, outRows
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}

// insertString returns a copy of ss with v inserted at position i.
func insertString(ss []string, i int, v string) []string {
	if i > len(ss) {
		i = len(ss)
	}
	out := make([]string, 0, len(ss)+1)
	out = append(out, ss[:i]...)
	out = append(out, v)
	out = append(out, ss[i:]...)
	return out
}

