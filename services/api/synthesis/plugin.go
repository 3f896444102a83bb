package synthesis

import (
	"context"
	"errors"
)

// ErrInvalidCredentials is wrapped by plugins whose backend rejected or lacks credentials.
var ErrInvalidCredentials = errors.New("invalid or missing credentials")

// DataSource identifies a plugin's backend.
type DataSource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IDPrefix string `json:"id_prefix"`
	Location string `json:"location,omitempty"`
}

// ResultKind tags a Result pulled from a Sequence.
type ResultKind int

const (
	// ResultValue carries one object.
	ResultValue ResultKind = iota
	// ResultEnd marks exhaustion and may carry trailing diagnostics.
	ResultEnd
)

// Result is one step of a plugin sequence.
type Result struct {
	Kind        ResultKind
	Object      Object
	Diagnostics []string
}

// Value wraps obj as a ResultValue.
func Value(obj Object) Result { return Result{Kind: ResultValue, Object: obj} }

// End marks the end of a sequence.
func End(diagnostics ...string) Result { return Result{Kind: ResultEnd, Diagnostics: diagnostics} }

// Sequence is a lazy, pull-based stream of plugin results. After a ResultEnd
// or an error the sequence is not pulled again.
type Sequence interface {
	Next(ctx context.Context) (Result, error)
}

// Closer is implemented by sequences holding resources such as database
// cursors. The merger closes a sequence once it ends, fails, or the merge is
// closed early.
type Closer interface {
	Close()
}

// SequenceFunc adapts a function to Sequence.
type SequenceFunc func(ctx context.Context) (Result, error)

// Next implements Sequence.
func (f SequenceFunc) Next(ctx context.Context) (Result, error) { return f(ctx) }

// SliceSequence yields objs in order, then ends with diagnostics.
func SliceSequence(objs []Object, diagnostics ...string) Sequence {
	i := 0
	return SequenceFunc(func(context.Context) (Result, error) {
		if i >= len(objs) {
			return End(diagnostics...), nil
		}
		obj := objs[i]
		i++
		return Value(obj), nil
	})
}

// ListFunc opens a plugin sequence for a plugin-scoped query.
type ListFunc func(ctx context.Context, q Query) (Sequence, error)

// GetFunc fetches one object by plugin-local id. A nil object means not found.
type GetFunc func(ctx context.Context, q *QueryByID) (Object, error)

// View is the accessor a plugin exposes for one entity type. Nil functions are
// unsupported capabilities.
type View struct {
	List ListFunc
	Get  GetFunc
}

// ObservedProperty maps a broker variable to a datasource variable.
type ObservedProperty struct {
	BrokerVariable     string `json:"broker_variable" yaml:"broker_variable"`
	DatasourceVariable string `json:"datasource_variable" yaml:"datasource_variable"`
	Description        string `json:"description,omitempty" yaml:"description"`
	Unit               string `json:"unit,omitempty" yaml:"unit"`
}

// MappedAttribute maps a broker vocabulary value to a datasource attribute id.
type MappedAttribute struct {
	Kind             AttributeKind `json:"kind" yaml:"kind"`
	BrokerValue      string        `json:"broker_value" yaml:"broker_value"`
	DatasourceAttrID string        `json:"datasource_attr_id" yaml:"datasource_attr_id"`
}

// Mapper translates broker vocabulary into a plugin's vocabulary. Unknown
// terms are simply absent from the results.
type Mapper interface {
	ObservedProperties(ctx context.Context, variables []string) ([]ObservedProperty, error)
	MappedAttributes(ctx context.Context, kind AttributeKind, values []string, strict bool) ([]MappedAttribute, error)
}

// Plugin is a registered data source and its capabilities.
type Plugin struct {
	DataSource DataSource
	Views      map[EntityType]View
	// Mapper may be nil, in which case no vocabulary translates.
	Mapper Mapper
}

// View returns the accessor for entity, if the plugin has one.
func (p *Plugin) View(entity EntityType) (View, bool) {
	v, ok := p.Views[entity]
	return v, ok
}
