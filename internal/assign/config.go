package assign

import (
	"fmt"

	"github.com/armforge/armforge/compiler/errors"
	utilstrings "github.com/armforge/armforge/internal/util/strings"
	"github.com/armforge/armforge/pkg/resource"
)

// Strategy selects how partition units are grouped into documents
type Strategy string

const (
	MinimizeCrossRefs Strategy = "minimize-cross-refs"
	ByResourceType    Strategy = "resource-type"
	DependencyChain   Strategy = "dependency-chain"
	Custom            Strategy = "custom"
)

// Strategies lists the built-in strategies in display order
var Strategies = []Strategy{MinimizeCrossRefs, ByResourceType, DependencyChain, Custom}

// DefaultMaxTemplateSize is 3.5 MiB, leaving headroom below ARM's 4 MiB limit
const DefaultMaxTemplateSize int64 = 3670016

// MainDocument is the name of the root document
const MainDocument = "main"

// DeploymentName derives the deployment unit name of a document. Distinct
// documents can share one ("Web" and "web"); Assign rejects that.
func DeploymentName(doc string) string {
	return "deploy-" + utilstrings.ToKebabCase(doc)
}

// GroupingFunc maps every resource id to a document name
type GroupingFunc func(metas []resource.Metadata) (map[string]string, error)

// Config controls assignment
type Config struct {
	MaxTemplateSize       int64
	Strategy              Strategy
	PreferLinkedTemplates bool
	CustomGrouping        GroupingFunc
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxTemplateSize: DefaultMaxTemplateSize,
		Strategy:        MinimizeCrossRefs,
	}
}

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	for _, known := range Strategies {
		if string(known) == s {
			return known, nil
		}
	}
	return "", &errors.AssignmentError{
		Code:    errors.ErrUnknownStrategy,
		Message: fmt.Sprintf("unknown grouping strategy %q (expected one of %v)", s, Strategies),
	}
}

func (c Config) withDefaults() Config {
	if c.MaxTemplateSize <= 0 {
		c.MaxTemplateSize = DefaultMaxTemplateSize
	}
	if c.Strategy == "" {
		c.Strategy = MinimizeCrossRefs
	}
	return c
}
