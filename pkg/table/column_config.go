package table

import (
	"fmt"
	"math"
	"strconv"

	"github.com/thoas/go-funk"
)

type DataFormat string

const (
	FormatWide DataFormat = "wide"
	FormatLong DataFormat = "long"
)

// ColumnConfig is the column mapping chosen by the user at upload time.
type ColumnConfig struct {
	Format           DataFormat `json:"format"`
	CustomerIDColumn string     `json:"customerIdColumn"`
	// wide format
	FeatureColumns []string `json:"featureColumns,omitempty"`
	// long format
	FeatureNameColumn  string `json:"featureNameColumn,omitempty"`
	FeatureValueColumn string `json:"featureValueColumn,omitempty"`
}

// Apply reshapes t according to cfg. A wide config keeps the customer id and
// feature columns; a long config pivots (customer, feature, value) rows into
// one row per customer.
func (t *Table) Apply(cfg ColumnConfig) (*Table, error) {
	switch cfg.Format {
	case FormatLong:
		return t.pivot(cfg)
	case FormatWide, "":
		return t.selectWide(cfg)
	default:
		return nil, fmt.Errorf("unsupported data format %q", cfg.Format)
	}
}

func (t *Table) selectWide(cfg ColumnConfig) (*Table, error) {
	if len(cfg.FeatureColumns) == 0 {
		if cfg.CustomerIDColumn == "" {
			return t, nil
		}
		if t.ColumnIndex(cfg.CustomerIDColumn) < 0 {
			return nil, fmt.Errorf("column %q not found", cfg.CustomerIDColumn)
		}
		return &Table{Columns: t.Columns, Rows: t.Rows, IDColumn: cfg.CustomerIDColumn}, nil
	}

	columns := make([]string, 0, len(cfg.FeatureColumns)+1)
	if cfg.CustomerIDColumn != "" {
		columns = append(columns, cfg.CustomerIDColumn)
	}
	for _, c := range cfg.FeatureColumns {
		if !funk.ContainsString(columns, c) {
			columns = append(columns, c)
		}
	}
	selected, err := t.Select(columns...)
	if err != nil {
		return nil, err
	}
	selected.IDColumn = cfg.CustomerIDColumn
	return selected, nil
}

func (t *Table) pivot(cfg ColumnConfig) (*Table, error) {
	for _, c := range []string{cfg.CustomerIDColumn, cfg.FeatureNameColumn, cfg.FeatureValueColumn} {
		if c == "" {
			return nil, fmt.Errorf("long format requires customer id, feature name and feature value columns")
		}
		if !funk.ContainsString(t.Columns, c) {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}

	idCol := t.ColumnIndex(cfg.CustomerIDColumn)
	nameCol := t.ColumnIndex(cfg.FeatureNameColumn)
	valueCol := t.ColumnIndex(cfg.FeatureValueColumn)

	// slices keep first-seen order, maps answer membership
	var customers, features []string
	sums := map[string]map[string]float64{}
	seenFeatures := map[string]struct{}{}
	for i, row := range t.Rows {
		customer, feature := row[idCol], row[nameCol]
		if IsMissing(customer) || IsMissing(feature) {
			continue
		}
		v, ok := ParseFloat(row[valueCol])
		if !ok {
			return nil, fmt.Errorf("row %d: value %q of column %q is not numeric", i+1, row[valueCol], cfg.FeatureValueColumn)
		}

		if _, ok := sums[customer]; !ok {
			customers = append(customers, customer)
			sums[customer] = map[string]float64{}
		}
		if _, ok := seenFeatures[feature]; !ok {
			features = append(features, feature)
			seenFeatures[feature] = struct{}{}
		}
		if !math.IsNaN(v) {
			sums[customer][feature] += v
		}
	}

	columns := append([]string{cfg.CustomerIDColumn}, features...)
	rows := make([][]string, len(customers))
	for r, customer := range customers {
		row := make([]string, len(columns))
		row[0] = customer
		for c, feature := range features {
			if v, ok := sums[customer][feature]; ok {
				row[c+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		rows[r] = row
	}
	pivoted, err := New(columns, rows)
	if err != nil {
		return nil, err
	}
	pivoted.IDColumn = cfg.CustomerIDColumn
	return pivoted, nil
}
