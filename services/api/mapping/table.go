// Package mapping provides the read-only vocabulary tables plugins use to
// translate broker variables and attributes into their own terms.
package mapping

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

// Table maps broker vocabulary to one datasource's vocabulary.
type Table struct {
	Variables  []synthesis.ObservedProperty `yaml:"variables"`
	Attributes []synthesis.MappedAttribute  `yaml:"attributes"`
}

// Parse decodes a YAML mapping table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode mapping table: %w", err)
	}
	for i, v := range t.Variables {
		if v.BrokerVariable == "" || v.DatasourceVariable == "" {
			return nil, fmt.Errorf("mapping table: variable %d needs broker_variable and datasource_variable", i)
		}
	}
	for i, a := range t.Attributes {
		if a.Kind == "" || a.BrokerValue == "" || a.DatasourceAttrID == "" {
			return nil, fmt.Errorf("mapping table: attribute %d needs kind, broker_value and datasource_attr_id", i)
		}
	}
	return &t, nil
}

// MustParse is Parse for embedded tables.
func MustParse(data []byte) *Table {
	t, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return t
}

// ObservedProperties implements synthesis.Mapper. Results follow the order of
// variables; unknown variables are skipped.
func (t *Table) ObservedProperties(_ context.Context, variables []string) ([]synthesis.ObservedProperty, error) {
	out := make([]synthesis.ObservedProperty, 0, len(variables))
	for _, v := range variables {
		for _, op := range t.Variables {
			if op.BrokerVariable == v {
				out = append(out, op)
			}
		}
	}
	return out, nil
}

// MappedAttributes implements synthesis.Mapper. Strict lookups compare values
// exactly; otherwise case is ignored.
func (t *Table) MappedAttributes(_ context.Context, kind synthesis.AttributeKind, values []string, strict bool) ([]synthesis.MappedAttribute, error) {
	out := make([]synthesis.MappedAttribute, 0, len(values))
	for _, v := range values {
		for _, a := range t.Attributes {
			if a.Kind != kind {
				continue
			}
			if a.BrokerValue == v || (!strict && strings.EqualFold(a.BrokerValue, v)) {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

// BrokerVariable reverses a datasource variable into the broker variable it maps from.
func (t *Table) BrokerVariable(datasourceVariable string) (string, bool) {
	for _, op := range t.Variables {
		if op.DatasourceVariable == datasourceVariable {
			return op.BrokerVariable, true
		}
	}
	return "", false
}

// Unit returns the unit declared for a datasource variable.
func (t *Table) Unit(datasourceVariable string) string {
	for _, op := range t.Variables {
		if op.DatasourceVariable == datasourceVariable {
			return op.Unit
		}
	}
	return ""
}

// BrokerAttribute reverses a datasource attribute id of the given kind.
func (t *Table) BrokerAttribute(kind synthesis.AttributeKind, datasourceAttrID string) (string, bool) {
	for _, a := range t.Attributes {
		if a.Kind == kind && a.DatasourceAttrID == datasourceAttrID {
			return a.BrokerValue, true
		}
	}
	return "", false
}
