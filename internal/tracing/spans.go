package tracing

// TracerName is the instrumentation scope of resolution pass spans.
const TracerName = "github.com/Station-Manager/dbinit"

// Span names.
const (
	SpanResolve           = "dbinit.resolve"
	SpanDetectInitializer = "dbinit.detect_initializers"
	SpanDetectionComplete = "dbinit.detection_complete"
	SpanDetectDependents  = "dbinit.detect_dependents"
	SpanLink              = "dbinit.link"
)

// Span attribute keys.
const (
	AttrPassID           = "dbinit.pass.id"
	AttrInitializerCount = "dbinit.initializers.count"
	AttrDependentCount   = "dbinit.dependents.count"
	AttrDetectorCount    = "dbinit.detectors.count"
	AttrEdgeCount        = "dbinit.edges.count"
)
