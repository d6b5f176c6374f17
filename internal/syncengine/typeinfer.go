package syncengine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/user/syncengine/pkg/syncmodel"
)

var headerInvalidChar = regexp.MustCompile(`[^a-z0-9_]`)

// sanitizeHeader lowercases a sheet header and reduces it to [a-z0-9_],
// guarding against a leading digit (spec §4.4 Reconcile: "sanitize each
// header to [a-z0-9_] with a leading-digit guard").
func sanitizeHeader(raw string) string {
	clean := headerInvalidChar.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "_")
	if clean == "" {
		clean = "column"
	}
	if clean[0] >= '0' && clean[0] <= '9' {
		clean = "c_" + clean
	}
	return clean
}

var (
	dateValuePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timestampValuePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`)
)

// inferColumnClass scans a column's non-null string values in the regex
// order {date, timestamp, float, integer, else string} (spec §4.4) and
// returns the first class every value satisfies. A column whose values are
// all whole numbers skips the float check and is classed as integer.
func inferColumnClass(values []string) syncmodel.FieldClass {
	nonNull := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) == 0 {
		return syncmodel.ClassString
	}

	checks := []struct {
		class syncmodel.FieldClass
		match func(string) bool
	}{
		{syncmodel.ClassDate, dateValuePattern.MatchString},
		{syncmodel.ClassTimestamp, timestampValuePattern.MatchString},
		{syncmodel.ClassFloat, isFloatValue},
		{syncmodel.ClassInt, isIntValue},
	}
	for _, check := range checks {
		// Every whole number also parses as a float, so without this the
		// integer check could never be reached.
		if check.class == syncmodel.ClassFloat && allMatch(nonNull, isIntValue) {
			continue
		}
		if allMatch(nonNull, check.match) {
			return check.class
		}
	}
	return syncmodel.ClassString
}

func allMatch(values []string, match func(string) bool) bool {
	for _, v := range values {
		if !match(v) {
			return false
		}
	}
	return true
}

func isIntValue(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloatValue(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// inferSheetSchema builds a new-table schema from sanitized headers and the
// sampled page's column values (spec §4.4 scenario 6).
func inferSheetSchema(headers []string, rows [][]any) syncmodel.Schema {
	schema := make(syncmodel.Schema, len(headers))
	for i, header := range headers {
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			if i < len(row) && row[i] != nil {
				values = append(values, stringify(row[i]))
			}
		}
		schema[i] = syncmodel.SchemaField{
			Name:     header,
			Class:    inferColumnClass(values),
			Nullable: true,
		}
	}
	return schema
}
