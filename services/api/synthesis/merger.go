package synthesis

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"

	"go.uber.org/zap/zapcore"
)

type mergerState int

const (
	stateNotStarted mergerState = iota
	stateDraining
	stateAdvancing
	stateExhausted
)

// Merger lazily chains the result sequences of a resolved plugin set. Plugins
// are visited strictly in order; nothing runs until the caller pulls. A plugin
// that is missing the view, fails to open, or fails mid-sequence contributes a
// message instead of results and the merge moves on.
//
// A Merger is not safe for concurrent use.
type Merger struct {
	access   *ModelAccess
	response *Response
	plugins  []*Plugin

	state   mergerState
	index   int
	current Sequence
	loc     Location
}

func newMerger(access *ModelAccess, response *Response) *Merger {
	return &Merger{
		access:   access,
		response: response,
		plugins:  access.registry.Resolve(response.Query.DatasourceFilter()),
		index:    -1,
	}
}

// Response returns the response the merger reports into.
func (m *Merger) Response() *Response { return m.response }

// Next pulls the next object. It returns false once every plugin is exhausted,
// and keeps returning false afterwards.
func (m *Merger) Next(ctx context.Context) (Object, bool) {
	for {
		switch m.state {
		case stateExhausted:
			return nil, false

		case stateNotStarted, stateAdvancing:
			m.advance(ctx)

		case stateDraining:
			res, err := m.pull(ctx)
			if err != nil {
				m.fault(err)
				m.closeCurrent()
				continue
			}
			if res.Kind == ResultValue {
				if isNil(res.Object) {
					continue
				}
				if err := namespace(res.Object, m.plugins[m.index].DataSource.IDPrefix); err != nil {
					m.fault(err)
					continue
				}
				return res.Object, true
			}
			for _, d := range res.Diagnostics {
				m.response.sink.Record(m.loc, SeverityWarn, d)
			}
			m.closeCurrent()
		}
	}
}

// All returns an iterator over the remaining objects.
func (m *Merger) All(ctx context.Context) iter.Seq[Object] {
	return func(yield func(Object) bool) {
		for {
			obj, ok := m.Next(ctx)
			if !ok || !yield(obj) {
				return
			}
		}
	}
}

// Collect drains the merger.
func (m *Merger) Collect(ctx context.Context) []Object {
	out := make([]Object, 0)
	for obj := range m.All(ctx) {
		out = append(out, obj)
	}
	return out
}

// advance moves to the next plugin that opens a sequence, or to exhausted.
func (m *Merger) advance(ctx context.Context) {
	m.index++
	if m.index >= len(m.plugins) {
		m.state = stateExhausted
		m.loc = Location{Entity: m.access.entity}
		m.response.sink.Log(m.loc, zapcore.DebugLevel, "synthesis merge exhausted")
		return
	}
	m.state = stateAdvancing

	p := m.plugins[m.index]
	m.loc = Location{DataSource: p.DataSource.ID, Entity: m.access.entity}

	view, ok := p.View(m.access.entity)
	if !ok || view.List == nil {
		m.response.sink.Warn(m.loc, "plugin view does not exist")
		return
	}

	scoped, err := m.synthesize(ctx, p)
	if err != nil {
		m.fault(err)
		return
	}

	seq, err := m.open(ctx, view.List, scoped.scopedTo(p.DataSource.ID))
	if err != nil {
		m.fault(err)
		return
	}
	if seq == nil {
		return
	}
	m.current = seq
	m.state = stateDraining
}

func (m *Merger) closeCurrent() {
	if c, ok := m.current.(Closer); ok {
		c.Close()
	}
	m.current = nil
	m.state = stateAdvancing
}

// Close releases the open plugin sequence, if any, and ends the merge. Callers
// that stop pulling before exhaustion should call it.
func (m *Merger) Close() {
	if m.state == stateExhausted {
		return
	}
	m.closeCurrent()
	m.state = stateExhausted
}

// fault reports a plugin failure at the active location.
func (m *Merger) fault(err error) {
	if errors.Is(err, ErrInvalidCredentials) {
		m.response.sink.Error(m.loc, "datasource credentials rejected: %v", err)
		return
	}
	m.response.sink.Error(m.loc, "datasource failed: %v", err)
}

func (m *Merger) synthesize(ctx context.Context, p *Plugin) (q Query, err error) {
	defer recoverPlugin(&err)
	return m.access.synthesizer.Synthesize(ctx, p, m.response.Query, m.response.sink, m.loc), nil
}

func (m *Merger) open(ctx context.Context, list ListFunc, q Query) (seq Sequence, err error) {
	defer recoverPlugin(&err)
	return list(ctx, q)
}

func (m *Merger) pull(ctx context.Context) (res Result, err error) {
	defer recoverPlugin(&err)
	return m.current.Next(ctx)
}

// namespace rewrites obj's identifiers. Objects come from plugin code, so a
// panic here is a plugin fault.
func namespace(obj Object, prefix string) (err error) {
	defer recoverPlugin(&err)
	obj.Namespace(prefix)
	return nil
}

// isNil reports whether obj is nil or wraps a nil pointer.
func isNil(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// recoverPlugin turns a panic raised inside plugin code into an error.
func recoverPlugin(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("plugin panic: %v", r)
	}
}
