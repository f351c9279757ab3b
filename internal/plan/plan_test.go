package plan

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/detectors"
)

const samplePlan = `
components:
  - id: accounts-repository
    role: dependent
  - id: schema
    role: initializer
  - id: cache
    depends_on: [accounts-repository]
  - id: audit-loader
    metadata:
      kind: initializer
  - id: reports
    metadata:
      kind: dependent
environment:
  dbinit.detector.metadata-key: kind
`

func builtins(t *testing.T) *dbinit.Catalog {
	t.Helper()
	cat := dbinit.NewCatalog()
	require.NoError(t, detectors.Register(cat))
	return cat
}

func resultFor(res *Result, id string) ComponentResult {
	for _, c := range res.Components {
		if c.ID == id {
			return c
		}
	}
	return ComponentResult{}
}

func TestRun_OrdersDependentsAfterInitializers(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan))
	require.NoError(t, err)

	res, err := p.Run(Options{Catalog: builtins(t)})
	require.NoError(t, err)

	require.Len(t, res.Order, 5)
	for _, dep := range []string{"accounts-repository", "reports"} {
		for _, initializer := range []string{"schema", "audit-loader"} {
			assert.Less(t, slices.Index(res.Order, initializer), slices.Index(res.Order, dep), "%s before %s", initializer, dep)
		}
	}
	assert.Less(t, slices.Index(res.Order, "accounts-repository"), slices.Index(res.Order, "cache"))

	assert.Equal(t, dbinit.NameOf[detectors.TypeInitializerDetector](), resultFor(res, "schema").DetectedBy)
	assert.Equal(t, dbinit.NameOf[detectors.MetadataInitializerDetector](), resultFor(res, "audit-loader").DetectedBy)
	assert.Equal(t, []string{"audit-loader", "schema"}, resultFor(res, "reports").DependsOn)
	assert.Equal(t, []string{"accounts-repository"}, resultFor(res, "cache").DependsOn)
}

func TestRun_PlanManifestRestrictsDetectors(t *testing.T) {
	src := samplePlan + `
manifest:
  github.com/Station-Manager/dbinit.InitializerDetector:
    - github.com/Station-Manager/dbinit/detectors.TypeInitializerDetector
  github.com/Station-Manager/dbinit.DependentDetector:
    - github.com/Station-Manager/dbinit/detectors.TypeDependentDetector
`
	p, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	res, err := p.Run(Options{Catalog: builtins(t)})
	require.NoError(t, err)
	assert.Empty(t, resultFor(res, "audit-loader").DetectedBy)
	assert.Empty(t, resultFor(res, "reports").DependsOn)
	assert.Equal(t, []string{"schema"}, resultFor(res, "accounts-repository").DependsOn)
}

func TestRun_FallbackManifest(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan))
	require.NoError(t, err)

	res, err := p.Run(Options{Catalog: builtins(t), Manifest: dbinit.Manifest{}})
	require.NoError(t, err)
	for _, c := range res.Components {
		assert.Empty(t, c.DetectedBy, c.ID)
	}
}

func TestRun_UnknownDependsOn(t *testing.T) {
	p, err := Parse(strings.NewReader("components:\n  - id: a\n    depends_on: [ghost]\n"))
	require.NoError(t, err)

	_, err = p.Run(Options{Catalog: dbinit.NewCatalog()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing id":    "components:\n  - role: dependent\n",
		"duplicate id":  "components:\n  - id: a\n  - id: A\n",
		"unknown role":  "components:\n  - id: a\n    role: sometimes\n",
		"unknown field": "components:\n  - id: a\n    colour: red\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src))
			require.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	p, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, p.Components)
	assert.Nil(t, p.Manifest)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, p.Components, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
