package synthesis

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Response is the outcome of one List or Retrieve call. It echoes the caller's
// untranslated query and carries either a single object (Data) or a lazy
// Stream, plus the messages emitted while producing them.
type Response struct {
	ID     uuid.UUID
	Query  Query
	Data   Object
	Stream *Merger

	sink *MessageSink
}

// Messages returns the messages recorded so far.
func (r *Response) Messages() []Message { return r.sink.Messages() }

// ModelAccess synthesizes one entity type across the registered plugins.
type ModelAccess struct {
	registry    *Registry
	entity      EntityType
	synthesizer Synthesizer
	logger      *zap.Logger
}

// Option configures a ModelAccess.
type Option func(*ModelAccess)

// WithLogger sets the process logger messages are mirrored to. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(a *ModelAccess) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSynthesizer replaces the entity type's default query synthesizer.
func WithSynthesizer(s Synthesizer) Option {
	return func(a *ModelAccess) {
		if s != nil {
			a.synthesizer = s
		}
	}
}

// NewModelAccess builds the facade for an entity type.
func NewModelAccess(registry *Registry, entity EntityType, synthesizer Synthesizer, opts ...Option) *ModelAccess {
	a := &ModelAccess{
		registry:    registry,
		entity:      entity,
		synthesizer: synthesizer,
		logger:      zap.L(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("entity", string(entity)))
	return a
}

// NewMonitoringFeatureAccess synthesizes monitoring features.
func NewMonitoringFeatureAccess(registry *Registry, opts ...Option) *ModelAccess {
	return NewModelAccess(registry, EntityMonitoringFeature, MonitoringFeatureSynthesizer{}, opts...)
}

// NewTimeseriesAccess synthesizes measurement timeseries observations.
func NewTimeseriesAccess(registry *Registry, opts ...Option) *ModelAccess {
	return NewModelAccess(registry, EntityMeasurementTimeseriesTVPObservation, TimeseriesSynthesizer{}, opts...)
}

// Entity returns the entity type served.
func (a *ModelAccess) Entity() EntityType { return a.entity }

func (a *ModelAccess) newResponse(q Query) *Response {
	id := uuid.New()
	return &Response{
		ID:    id,
		Query: q,
		sink:  NewMessageSink(a.logger.With(zap.String("response_id", id.String()))),
	}
}

// List returns immediately with an undrained stream over every selected plugin.
func (a *ModelAccess) List(q Query) *Response {
	resp := a.newResponse(q)
	resp.Stream = newMerger(a, resp)
	return resp
}

// Retrieve looks up one object by composite id. Only the plugin owning the id
// prefix is consulted.
func (a *ModelAccess) Retrieve(ctx context.Context, q *QueryByID) *Response {
	resp := a.newResponse(q)
	if q.ID == "" {
		return resp
	}

	p, localID, ok := a.registry.Decompose(q.ID)
	if !ok {
		resp.sink.Error(Location{Entity: a.entity}, "datasource not found for id %s", q.ID)
		return resp
	}

	loc := Location{DataSource: p.DataSource.ID, Entity: a.entity}
	view, ok := p.View(a.entity)
	if !ok || view.Get == nil {
		resp.sink.Warn(loc, "there is no detail for %s", q.ID)
		return resp
	}

	scoped := &QueryByID{ID: localID, Datasource: []string{p.DataSource.ID}}
	obj, err := get(ctx, view.Get, scoped)
	if err != nil {
		resp.sink.Error(loc, "datasource failed: %v", err)
		return resp
	}
	if isNil(obj) {
		return resp
	}
	if err := namespace(obj, p.DataSource.IDPrefix); err != nil {
		resp.sink.Error(loc, "datasource failed: %v", err)
		return resp
	}
	resp.Data = obj
	return resp
}

func get(ctx context.Context, fn GetFunc, q *QueryByID) (obj Object, err error) {
	defer recoverPlugin(&err)
	return fn(ctx, q)
}
