package validation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/synthctx"
)

// DeploymentLayer simulates deployment in waves, across documents and
// within each document, and flags runtime reads of things that are not
// guaranteed to have completed.
type DeploymentLayer struct{}

// NewDeploymentLayer creates the deployment-order layer
func NewDeploymentLayer() *DeploymentLayer {
	return &DeploymentLayer{}
}

// Name implements Layer
func (l *DeploymentLayer) Name() errors.Layer {
	return errors.LayerDeployment
}

// Validate implements Layer
func (l *DeploymentLayer) Validate(_ context.Context, in *Input) ([]*errors.ValidationError, []*errors.ValidationError) {
	var out []*errors.ValidationError
	names := documentNames(in)
	byDeployment := deploymentIndex(in, names)

	// Document waves from each document's own metadata.dependsOn
	docDeps := make(map[string][]string, len(names))
	for _, name := range names {
		for i, dep := range stringList(metadataField(in.Documents[name], "dependsOn")) {
			target, ok := byDeployment[dep]
			if !ok {
				out = append(out, errors.NewValidationError(errors.LayerDeployment, errors.ErrUnknownDeploymentUnit,
					fmt.Sprintf("document depends on unknown deployment %q", dep), name, "metadata", "dependsOn", strconv.Itoa(i)))
				continue
			}
			docDeps[name] = append(docDeps[name], target)
		}
	}
	waves, cyclic := simulateWaves(names, docDeps)
	if len(cyclic) > 0 {
		out = append(out, errors.NewValidationError(errors.LayerDeployment, errors.ErrDeploymentOrderUnknown,
			fmt.Sprintf("documents never become deployable: %s", strings.Join(cyclic, ", ")), cyclic[0]))
		return split(out)
	}

	for _, name := range names {
		doc := in.Documents[name]
		closure := closureOf(name, docDeps)

		// Cross-document reads
		for _, section := range []string{"resources", "metadata"} {
			walkStrings(doc[section], []string{name, section}, func(path []string, s string) {
				for _, ref := range findOutputRefs(s) {
					target, ok := byDeployment[ref.Deployment]
					switch {
					case !ok:
						out = append(out, errors.NewValidationError(errors.LayerDeployment, errors.ErrUnknownDeploymentUnit,
							fmt.Sprintf("reference to unknown deployment %q", ref.Deployment), path...))
					case target == name || !closure[target]:
						out = append(out, errors.NewValidationError(errors.LayerDeployment, errors.ErrCrossDocumentOrdering,
							fmt.Sprintf("document %q (wave %d) reads outputs of %q (wave %d) without depending on it", name, waves[name], target, waves[target]),
							path...).
							WithExpected("metadata.dependsOn includes "+ref.Deployment, fmt.Sprintf("%v", stringList(metadataField(doc, "dependsOn")))))
					}
				}
			})
		}

		out = append(out, checkIntraDocument(in, name, doc)...)
	}

	return split(out)
}

func checkIntraDocument(in *Input, name string, doc map[string]any) []*errors.ValidationError {
	var out []*errors.ValidationError
	resources, _ := doc["resources"].([]any)

	labels := make([]string, len(resources))
	index := make(map[string]string)
	for i, item := range resources {
		labels[i] = resourceLabel(in, name, i, item)
		body, _ := item.(map[string]any)
		typ, _ := body["type"].(string)
		resourceName, _ := body["name"].(string)
		if typ != "" && resourceName != "" {
			index[resourceKey(typ, nameKey(resourceName))] = labels[i]
		}
	}

	deps := make(map[string][]string, len(resources))
	for i, item := range resources {
		body, _ := item.(map[string]any)
		entries, _ := body["dependsOn"].([]any)
		for j, entry := range entries {
			s, _ := entry.(string)
			key, ok := resourceIDTarget(s)
			if !ok {
				// Non-resourceId entries are reported by the structure layer
				continue
			}
			target, inDoc := index[key]
			if !inDoc && strings.Contains(key, "[") {
				// Names computed from expressions other than ours are not statically known
				continue
			}
			if !inDoc {
				out = append(out, errors.NewValidationError(errors.LayerDeployment, errors.ErrDependsOnOutsideDoc,
					fmt.Sprintf("dependsOn names %s, which is not in document %q", s, name),
					name, labels[i], "dependsOn", strconv.Itoa(j)))
				continue
			}
			deps[labels[i]] = append(deps[labels[i]], target)
		}
	}

	waves, cyclic := simulateWaves(labels, deps)
	if len(cyclic) > 0 {
		out = append(out, errors.NewValidationError(errors.LayerDeployment, errors.ErrDeploymentOrderUnknown,
			fmt.Sprintf("resources never become deployable: %s", strings.Join(cyclic, ", ")), name, cyclic[0]))
		return out
	}

	for i, item := range resources {
		reader := labels[i]
		closure := closureOf(reader, deps)
		walkStrings(item, []string{name, reader}, func(path []string, s string) {
			for _, read := range findRuntimeReads(s) {
				target, inDoc := index[read.Target]
				if read.Target == "" || !inDoc {
					continue
				}
				if target == reader || !closure[target] {
					out = append(out, errors.NewValidationError(errors.LayerDeployment, errors.ErrReferenceBeforeDeploy,
						fmt.Sprintf("%s (wave %d) calls %s() on %s (wave %d), which is not guaranteed to be deployed", reader, waves[reader], read.Function, target, waves[target]),
						path...).
						WithExpected("dependsOn includes "+target, fmt.Sprintf("%v", deps[reader])))
				}
			}
		})
	}
	return out
}

// simulateWaves assigns each node the wave in which it can deploy: one
// more than the latest wave among its dependencies. Nodes that never
// become ready are returned sorted.
func simulateWaves(nodes []string, deps map[string][]string) (map[string]int, []string) {
	waves := make(map[string]int, len(nodes))
	remaining := append([]string(nil), nodes...)
	for wave := 1; len(remaining) > 0; wave++ {
		var ready, blocked []string
		for _, n := range remaining {
			ok := true
			for _, d := range deps[n] {
				if w, done := waves[d]; !done || w >= wave {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, n)
			} else {
				blocked = append(blocked, n)
			}
		}
		if len(ready) == 0 {
			sort.Strings(blocked)
			return waves, blocked
		}
		for _, n := range ready {
			waves[n] = wave
		}
		remaining = blocked
	}
	return waves, nil
}

// closureOf returns everything start transitively depends on
func closureOf(start string, deps map[string][]string) map[string]bool {
	seen := make(map[string]bool)
	stack := append([]string(nil), deps[start]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, deps[n]...)
	}
	return seen
}

// deploymentIndex maps deployment names to document names
func deploymentIndex(in *Input, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		dep, _ := metadataField(in.Documents[name], "deploymentName").(string)
		if dep == "" {
			dep = synthctx.DeploymentName(name)
		}
		out[dep] = name
	}
	return out
}

func metadataField(doc map[string]any, key string) any {
	meta, _ := doc["metadata"].(map[string]any)
	return meta[key]
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
