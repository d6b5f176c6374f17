// Package reconcile computes source/sink schema drift and the DDL needed
// to close it (spec §4.3).
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/syncengine/pkg/sqlutil"
	"github.com/user/syncengine/pkg/syncmodel"
)

// SyncedAtColumn is the engine-owned column every sink table carries; it is
// never a drop candidate (invariant I5).
const SyncedAtColumn = "synced_at"

// Drift is the result of comparing a source schema against a sink schema.
type Drift struct {
	ToAdd  []syncmodel.SchemaField
	ToDrop []syncmodel.SchemaField
}

// DetectChanges compares source and sink field sets case-insensitively.
// Fields present only in the source are additions; fields present only in
// the sink are drop candidates, except synced_at, which is never dropped.
func DetectChanges(sourceFields, sinkFields syncmodel.Schema) Drift {
	sourceByName := sourceFields.ByLowerName()
	sinkByName := sinkFields.ByLowerName()

	var drift Drift
	for _, f := range sourceFields {
		if _, ok := sinkByName[lower(f.Name)]; !ok {
			drift.ToAdd = append(drift.ToAdd, f)
		}
	}
	for _, f := range sinkFields {
		if lower(f.Name) == SyncedAtColumn {
			continue
		}
		if _, ok := sourceByName[lower(f.Name)]; !ok {
			drift.ToDrop = append(drift.ToDrop, f)
		}
	}
	return drift
}

// ValidationResult reports which declared upsert columns do not exist in
// the source schema.
type ValidationResult struct {
	OK      bool
	Invalid []string
}

// ValidateUpsertKeys checks every declared upsert column exists in the
// source schema (case-insensitive).
func ValidateUpsertKeys(upsertColumns []string, sourceFields syncmodel.Schema) ValidationResult {
	byName := sourceFields.ByLowerName()
	var invalid []string
	for _, c := range upsertColumns {
		if _, ok := byName[lower(c)]; !ok {
			invalid = append(invalid, c)
		}
	}
	return ValidationResult{OK: len(invalid) == 0, Invalid: invalid}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// UniqueIndexName returns the deterministic constraint name the DDL
// generator uses for a table's upsert-column uniqueness constraint.
func UniqueIndexName(table string) string {
	return table + "_unique_idx"
}

// CreateTableDDL emits CREATE TABLE IF NOT EXISTS for table with the mapped
// source fields plus the engine-owned synced_at column, and a uniqueness
// constraint over upsertColumns.
func CreateTableDDL(driver, table string, fields syncmodel.Schema, upsertColumns []string) (string, error) {
	qTable, err := sqlutil.QuoteIdent(driver, table)
	if err != nil {
		return "", err
	}
	var cols []string
	for _, f := range fields {
		qCol, err := sqlutil.QuoteIdent(driver, f.Name)
		if err != nil {
			return "", err
		}
		cols = append(cols, fmt.Sprintf("%s %s", qCol, sqlutil.SQLType(f.Class)))
	}
	cols = append(cols, fmt.Sprintf("%s TIMESTAMPTZ DEFAULT now()", SyncedAtColumn))

	if len(upsertColumns) > 0 {
		quotedKeys := make([]string, 0, len(upsertColumns))
		for _, c := range upsertColumns {
			qc, err := sqlutil.QuoteIdent(driver, c)
			if err != nil {
				return "", err
			}
			quotedKeys = append(quotedKeys, qc)
		}
		constraintName, err := sqlutil.QuoteIdent(driver, UniqueIndexName(table))
		if err != nil {
			return "", err
		}
		cols = append(cols, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", constraintName, strings.Join(quotedKeys, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", qTable, strings.Join(cols, ",\n\t")), nil
}

// AlterTableDDL emits one ADD COLUMN / DROP COLUMN statement per field in
// drift, in a stable add-then-drop order.
func AlterTableDDL(driver, table string, drift Drift) ([]string, error) {
	qTable, err := sqlutil.QuoteIdent(driver, table)
	if err != nil {
		return nil, err
	}

	toAdd := append([]syncmodel.SchemaField(nil), drift.ToAdd...)
	sort.Slice(toAdd, func(i, j int) bool { return toAdd[i].Name < toAdd[j].Name })
	toDrop := append([]syncmodel.SchemaField(nil), drift.ToDrop...)
	sort.Slice(toDrop, func(i, j int) bool { return toDrop[i].Name < toDrop[j].Name })

	var stmts []string
	for _, f := range toAdd {
		qCol, err := sqlutil.QuoteIdent(driver, f.Name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", qTable, qCol, sqlutil.SQLType(f.Class)))
	}
	for _, f := range toDrop {
		qCol, err := sqlutil.QuoteIdent(driver, f.Name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s", qTable, qCol))
	}
	return stmts, nil
}

// UniqueConstraintDDL emits the statement that adds the upsert-column
// uniqueness constraint when the caller has determined it is absent.
func UniqueConstraintDDL(driver, table string, upsertColumns []string) (string, error) {
	qTable, err := sqlutil.QuoteIdent(driver, table)
	if err != nil {
		return "", err
	}
	constraintName, err := sqlutil.QuoteIdent(driver, UniqueIndexName(table))
	if err != nil {
		return "", err
	}
	quotedKeys := make([]string, 0, len(upsertColumns))
	for _, c := range upsertColumns {
		qc, err := sqlutil.QuoteIdent(driver, c)
		if err != nil {
			return "", err
		}
		quotedKeys = append(quotedKeys, qc)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", qTable, constraintName, strings.Join(quotedKeys, ", ")), nil
}
