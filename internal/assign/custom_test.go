package assign

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/pkg/resource"
)

func fixed(mapping map[string]string) GroupingFunc {
	return func([]resource.Metadata) (map[string]string, error) {
		return mapping, nil
	}
}

func TestCustom_KeepsNames(t *testing.T) {
	typ := "Microsoft.Web/sites"
	g := build(t, meta("api", typ, 10), meta("db", typ, 10), meta("cache", typ, 10, "db"))

	a, err := New(Config{Strategy: Custom, CustomGrouping: fixed(map[string]string{
		"api": "frontend", "db": "data", "cache": "data",
	})}).Assign(g)
	require.NoError(t, err)

	assert.Equal(t, []string{"frontend", "data"}, a.Order)
	assert.Equal(t, "frontend", a.Main(), "first declared resource decides main")
	assert.Equal(t, []string{"db", "cache"}, a.Templates["data"].Resources)

	a, err = New(Config{Strategy: Custom, CustomGrouping: fixed(map[string]string{
		"api": "frontend", "db": "main", "cache": "main",
	})}).Assign(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "frontend"}, a.Order)
	assert.Equal(t, "main", a.Main())
}

func TestCustom_Errors(t *testing.T) {
	typ := "Microsoft.Web/sites"
	x := meta("x", typ, 10)
	x.RequiresSameTemplate = []string{"y"}
	y := meta("y", typ, 10)

	tests := []struct {
		name     string
		mapping  map[string]string
		fnErr    error
		nilFunc  bool
		maxSize  int64
		wantCode string
	}{
		{name: "split co-location", mapping: map[string]string{"x": "one", "y": "two", "z": "one"}, wantCode: errors.ErrCustomColocation},
		{name: "missing id", mapping: map[string]string{"x": "one", "y": "one"}, wantCode: errors.ErrCustomIncomplete},
		{name: "unknown id", mapping: map[string]string{"x": "one", "y": "one", "z": "one", "ghost": "one"}, wantCode: errors.ErrCustomUnknownID},
		{name: "function failure", fnErr: stderrors.New("boom"), wantCode: errors.ErrCustomGroupingFailed},
		{name: "no function", nilFunc: true, wantCode: errors.ErrCustomGroupingFailed},
		{name: "document too large", mapping: map[string]string{"x": "one", "y": "one", "z": "one"}, maxSize: 25, wantCode: errors.ErrDocumentTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Strategy: Custom, MaxTemplateSize: tt.maxSize}
			if !tt.nilFunc {
				cfg.CustomGrouping = func([]resource.Metadata) (map[string]string, error) {
					return tt.mapping, tt.fnErr
				}
			}
			_, err := New(cfg).Assign(build(t, x, y, meta("z", typ, 10)))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrAssignment))
			assert.Equal(t, tt.wantCode, errors.Code(err))
		})
	}
}

func TestCustom_DocumentCycle(t *testing.T) {
	// Acyclic at resource level, cyclic once grouped:
	// main -> two (a1 -> b1), two -> three (b2 -> c1), three -> main (c2 -> a2)
	typ := "Microsoft.Web/sites"
	g := build(t,
		meta("a1", typ, 1, "b1"), meta("a2", typ, 1),
		meta("b1", typ, 1), meta("b2", typ, 1, "c1"),
		meta("c1", typ, 1), meta("c2", typ, 1, "a2"),
	)

	_, err := New(Config{Strategy: Custom, CustomGrouping: fixed(map[string]string{
		"a1": "main", "a2": "main",
		"b1": "two", "b2": "two",
		"c1": "three", "c2": "three",
	})}).Assign(g)
	require.Error(t, err)

	var aerr *errors.AssignmentError
	require.True(t, stderrors.As(err, &aerr))
	assert.Equal(t, errors.ErrDocumentCycle, aerr.Code)
	assert.Equal(t, []string{"main", "two", "three", "main"}, aerr.Documents)
}

func TestHintGrouping(t *testing.T) {
	typ := "Microsoft.Web/sites"
	api := meta("api", typ, 10)
	api.AssignmentHints = map[string]string{"document": "frontend"}
	g := build(t, api, meta("db", typ, 10), meta("cache", typ, 10, "db"))

	a, err := New(Config{Strategy: Custom, CustomGrouping: HintGrouping("document")}).Assign(g)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "frontend"}, a.Order)
	assert.Equal(t, docsOf(a), map[string][]string{
		"main":     {"db", "cache"},
		"frontend": {"api"},
	})
}
