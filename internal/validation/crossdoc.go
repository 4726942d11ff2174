package validation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/synthctx"
)

// CrossDocumentLayer checks that outputs and output references pair up
// across documents, and that every cross-template dependency of the
// assignment is carried by both of its documents.
type CrossDocumentLayer struct{}

// NewCrossDocumentLayer creates the cross-document integrity layer
func NewCrossDocumentLayer() *CrossDocumentLayer {
	return &CrossDocumentLayer{}
}

// Name implements Layer
func (l *CrossDocumentLayer) Name() errors.Layer {
	return errors.LayerCrossDocument
}

// Validate implements Layer
func (l *CrossDocumentLayer) Validate(_ context.Context, in *Input) ([]*errors.ValidationError, []*errors.ValidationError) {
	var out []*errors.ValidationError
	names := documentNames(in)
	byDeployment := deploymentIndex(in, names)

	outputs := make(map[string]map[string]bool, len(names))
	for _, name := range names {
		outputs[name] = make(map[string]bool)
		if section, ok := in.Documents[name]["outputs"].(map[string]any); ok {
			for key := range section {
				outputs[name][key] = true
			}
		}
	}

	referenced := make(map[string]map[string]bool, len(names))
	for _, name := range names {
		doc := in.Documents[name]
		for _, section := range []string{"resources", "metadata", "outputs"} {
			walkStrings(doc[section], []string{name, section}, func(path []string, s string) {
				for _, ref := range findOutputRefs(s) {
					target, ok := byDeployment[ref.Deployment]
					if !ok {
						// Unknown deployments are a deployment-order finding
						continue
					}
					if referenced[target] == nil {
						referenced[target] = make(map[string]bool)
					}
					referenced[target][ref.Output] = true
					if !outputs[target][ref.Output] {
						out = append(out, errors.NewValidationError(errors.LayerCrossDocument, errors.ErrUnregisteredOutput,
							fmt.Sprintf("%q does not declare output %q", target, ref.Output), path...).
							WithExpected("outputs."+ref.Output+" on "+target, "absent"))
					}
				}
			})
		}
	}

	for _, name := range names {
		for _, key := range sortedKeys(asObject(in.Documents[name]["outputs"])) {
			if !referenced[name][key] {
				out = append(out, errors.NewValidationError(errors.LayerCrossDocument, errors.ErrOrphanOutput,
					fmt.Sprintf("output %q is never referenced by another document", key), name, "outputs", key))
			}
		}
	}

	if in.Assignments != nil {
		for i, dep := range in.Assignments.CrossTemplateDependencies {
			source, ok := in.Documents[dep.SourceTemplate]
			if !ok {
				continue
			}
			path := []string{dep.SourceTemplate, "metadata", "crossTemplateDependencies", strconv.Itoa(i)}
			expressions, found := crossDependencyExpressions(source, dep.SourceResource, dep.TargetResource)
			if !found || len(expressions) == 0 {
				out = append(out, errors.NewValidationError(errors.LayerCrossDocument, errors.ErrUnreferencedDependency,
					fmt.Sprintf("%s depends on %s in %q but %q never references it", dep.SourceResource, dep.TargetResource, dep.TargetTemplate, dep.SourceTemplate),
					path...))
				continue
			}
			targetDeployment := synthctx.DeploymentName(dep.TargetTemplate)
			if meta, ok := metadataField(in.Documents[dep.TargetTemplate], "deploymentName").(string); ok && meta != "" {
				targetDeployment = meta
			}
			for _, expr := range expressions {
				refs := findOutputRefs(expr)
				satisfied := false
				for _, ref := range refs {
					if ref.Deployment == targetDeployment && outputs[dep.TargetTemplate][ref.Output] {
						satisfied = true
					}
				}
				if !satisfied {
					out = append(out, errors.NewValidationError(errors.LayerCrossDocument, errors.ErrMissingDependencyOutput,
						fmt.Sprintf("%s reads %s through %s, which %q does not export", dep.SourceResource, dep.TargetResource, expr, dep.TargetTemplate),
						path...).
						WithExpected("an output of "+targetDeployment, expr))
				}
			}
		}
	}

	return split(out)
}

// crossDependencyExpressions finds the metadata entry for source -> target
func crossDependencyExpressions(doc map[string]any, source, target string) ([]string, bool) {
	entries, _ := metadataField(doc, "crossTemplateDependencies").([]any)
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		if entry["resource"] == source && entry["dependsOn"] == target {
			return stringList(entry["expressions"]), true
		}
	}
	return nil, false
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
