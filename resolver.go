package dbinit

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Station-Manager/dbinit/container"
	"github.com/Station-Manager/dbinit/internal/log"
	"github.com/Station-Manager/dbinit/internal/tracing"
)

// Resolver makes every bean that depends on database initialization depend on
// every detected database initializer. It is a container.RegistryPostProcessor.
type Resolver struct {
	loader Loader
	tracer trace.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLoader sets the loader used to discover detectors.
func WithLoader(l Loader) Option {
	return func(r *Resolver) {
		r.loader = l
	}
}

// WithCatalog discovers detectors from c instead of the default catalog.
func WithCatalog(c *Catalog) Option {
	return func(r *Resolver) {
		r.loader.Catalog = c
	}
}

// WithManifest restricts the participating detectors to those listed in m.
func WithManifest(m Manifest) Option {
	return func(r *Resolver) {
		r.loader.Manifest = m
	}
}

// WithTracer sets the tracer used for resolution pass spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = t
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracing.TracerName)
	}
	return r
}

// PostProcessRegistry runs one resolution pass against the container being built.
func (r *Resolver) PostProcessRegistry(reg container.Registry) error {
	return r.Resolve(context.Background(), reg)
}

// Resolve runs one resolution pass: detect initializers, tag them, notify the
// initializer detectors, detect dependents and link every dependent to every
// initializer. Any detector failure aborts the pass.
func (r *Resolver) Resolve(ctx context.Context, reg container.Registry) error {
	passID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, tracing.SpanResolve,
		trace.WithAttributes(attribute.String(tracing.AttrPassID, passID)))
	defer span.End()

	p := &pass{id: passID, reg: reg, tracer: r.tracer}
	if err := p.run(ctx, r.loader); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatDBInit, "resolution pass failed", err, "pass", passID)
		return err
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrInitializerCount, p.initializers.Len()),
		attribute.Int(tracing.AttrDependentCount, p.dependents.Len()),
	)
	span.SetStatus(codes.Ok, "")
	log.Info(log.CatDBInit, "resolution pass complete", "pass", passID,
		"initializers", p.initializers.Sorted(), "dependents", p.dependents.Sorted())
	return nil
}

type pass struct {
	id           string
	reg          container.Registry
	tracer       trace.Tracer
	initializers Set
	dependents   Set
}

func (p *pass) run(ctx context.Context, loader Loader) error {
	env := p.reg.Environment()
	initDetectors, err := loader.InitializerDetectors(env)
	if err != nil {
		return err
	}
	depDetectors, err := loader.DependentDetectors(env)
	if err != nil {
		return err
	}

	if err := p.phase(ctx, tracing.SpanDetectInitializer, len(initDetectors), func(trace.Span) error {
		return p.detectInitializers(initDetectors)
	}); err != nil {
		return err
	}
	if err := p.phase(ctx, tracing.SpanDetectionComplete, len(initDetectors), func(trace.Span) error {
		return p.completeDetection(initDetectors)
	}); err != nil {
		return err
	}
	if err := p.phase(ctx, tracing.SpanDetectDependents, len(depDetectors), func(trace.Span) error {
		return p.detectDependents(depDetectors)
	}); err != nil {
		return err
	}
	return p.phase(ctx, tracing.SpanLink, -1, p.link)
}

// phase runs fn inside a child span. A negative detector count is not recorded.
func (p *pass) phase(ctx context.Context, name string, detectors int, fn func(trace.Span) error) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrPassID, p.id)}
	if detectors >= 0 {
		attrs = append(attrs, attribute.Int(tracing.AttrDetectorCount, detectors))
	}
	_, span := p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	if err := fn(span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

type detection struct {
	detector string
	ids      []string
}

func (p *pass) detectInitializers(detectors []Descriptor[InitializerDetector]) error {
	results := make([]detection, 0, len(detectors))
	for _, d := range detectors {
		found, err := d.Detector.Detect(p.reg)
		if err != nil {
			return fmt.Errorf("initializer detector %s: %w", d.Name, err)
		}
		results = append(results, detection{detector: d.Name, ids: found.Sorted()})
	}
	if err := p.requireRegistered(results); err != nil {
		return err
	}

	// Later detectors overwrite the tag of beans reported by more than one detector.
	p.initializers = NewSet()
	for _, res := range results {
		for _, id := range res.ids {
			if err := p.reg.SetDetectedBy(id, res.detector); err != nil {
				return err
			}
			p.initializers.Add(id)
		}
		log.Debug(log.CatDBInit, "initializers detected", "pass", p.id, "detector", res.detector, "beans", res.ids)
	}
	return nil
}

func (p *pass) completeDetection(detectors []Descriptor[InitializerDetector]) error {
	for _, d := range detectors {
		if err := d.Detector.DetectionComplete(p.reg, p.initializers.Clone()); err != nil {
			return fmt.Errorf("initializer detector %s: detection complete: %w", d.Name, err)
		}
	}
	return nil
}

func (p *pass) detectDependents(detectors []Descriptor[DependentDetector]) error {
	results := make([]detection, 0, len(detectors))
	for _, d := range detectors {
		found, err := d.Detector.Detect(p.reg)
		if err != nil {
			return fmt.Errorf("dependent detector %s: %w", d.Name, err)
		}
		results = append(results, detection{detector: d.Name, ids: found.Sorted()})
	}
	if err := p.requireRegistered(results); err != nil {
		return err
	}

	p.dependents = NewSet()
	for _, res := range results {
		p.dependents.Add(res.ids...)
		log.Debug(log.CatDBInit, "dependents detected", "pass", p.id, "detector", res.detector, "beans", res.ids)
	}
	return nil
}

// link adds an edge from every dependent to every initializer. Beans that are
// both are not filtered; the container reports the resulting cycle.
func (p *pass) link(span trace.Span) error {
	added := 0
	defer func() {
		span.SetAttributes(attribute.Int(tracing.AttrEdgeCount, added))
	}()
	if p.initializers.Len() == 0 {
		return nil
	}
	initializers := p.initializers.Sorted()
	for _, dependent := range p.dependents.Sorted() {
		def, _ := p.reg.Definition(dependent)
		for _, id := range initializers {
			if !slices.Contains(def.DependsOn, id) {
				added++
			}
		}
		if err := p.reg.AddDependsOn(dependent, initializers...); err != nil {
			return err
		}
	}
	log.Debug(log.CatDBInit, "dependents linked", "pass", p.id, "edges", added)
	return nil
}

// requireRegistered rewrites every detected identifier to the registry's own
// id, failing before anything is written when one is not registered.
func (p *pass) requireRegistered(results []detection) error {
	for i, res := range results {
		ids := NewSet()
		for _, id := range res.ids {
			def, ok := p.reg.Definition(id)
			if !ok {
				return fmt.Errorf("%w: '%s' reported by %s", ErrUnknownComponent, id, res.detector)
			}
			ids.Add(def.ID)
		}
		results[i].ids = ids.Sorted()
	}
	return nil
}
