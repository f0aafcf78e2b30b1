package payload

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"
)

// DefaultNamespace is used to resolve endpoints of packages that do not
// declare a namespace.
const DefaultNamespace = "default"

// EndpointResolver maps a kind to the API path template resources of that
// kind are submitted to. Namespaced templates contain "{namespace}".
type EndpointResolver interface {
	ResolveEndpoint(kind Kind) (string, error)
}

// FormatEndpoint fills the namespace into an endpoint template.
func FormatEndpoint(template, namespace string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return strings.ReplaceAll(template, "{namespace}", namespace)
}

// Builder turns the dependencies of a package into a deploy plan.
type Builder struct {
	pkg       *Package
	endpoints EndpointResolver
}

// NewBuilder returns a builder for pkg. pkg is recorded as the parent of
// every resource it builds.
func NewBuilder(pkg *Package, endpoints EndpointResolver) *Builder {
	return &Builder{pkg: pkg, endpoints: endpoints}
}

// Resources returns the resources of dep ready to be patched: the raw
// resources with the namespace resource first when dep has a namespace.
// Every call returns a new list.
func (b *Builder) Resources(dep *Package) []*Resource {
	return WithNamespaceInjected(dep.LoadRawResources(), dep.Namespace)
}

// Build builds every dependency of the package, in order. The first error
// aborts the build.
func (b *Builder) Build() (*BuildResult, error) {
	result := &BuildResult{
		Deploy:  make([]DeployUnit, 0, len(b.pkg.Dependencies)),
		Package: b.pkg.Info(),
	}
	for _, dep := range b.pkg.Dependencies {
		unit, err := b.BuildDependency(dep)
		if err != nil {
			return nil, err
		}
		result.Deploy = append(result.Deploy, *unit)
	}
	return result, nil
}

// BuildDependency builds the resources of dep: load, inject the namespace,
// patch, annotate and render.
func (b *Builder) BuildDependency(dep *Package) (*DeployUnit, error) {
	klog.V(4).Infof("Building %s for %s", dep, b.pkg)
	resources := b.Resources(dep)
	if err := ApplyPatches(resources, dep.Namespace); err != nil {
		return nil, errors.Wrapf(err, "failed to build %s", dep)
	}

	unit := &DeployUnit{
		Package:   dep.Name,
		Version:   dep.Version,
		Namespace: dep.Namespace,
		Resources: make([]BuiltResource, 0, len(resources)),
	}
	for _, r := range resources {
		built, err := b.buildResource(dep, r)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build %s", dep)
		}
		unit.Resources = append(unit.Resources, *built)
	}
	return unit, nil
}

func (b *Builder) buildResource(dep *Package, r *Resource) (*BuiltResource, error) {
	if err := Annotate(dep, b.pkg.Name, r); err != nil {
		return nil, err
	}
	name, err := r.ResourceName()
	if err != nil {
		return nil, err
	}
	kind := r.Kind()
	if kind == "" {
		return nil, newManifestError(r, "kind is missing", nil)
	}
	template, err := b.endpoints.ResolveEndpoint(kind)
	if err != nil {
		return nil, newManifestError(r, err.Error(), err)
	}
	body, err := marshalBody(r.Value.Object)
	if err != nil {
		return nil, newManifestError(r, "could not serialize manifest", err)
	}

	var hash *string
	metadata, _ := r.metadata()
	annotations, _ := metadata["annotations"].(map[string]interface{})
	if h, ok := annotations[AnnotationHash].(string); ok {
		hash = ptr.To(h)
	}

	return &BuiltResource{
		File:       r.File,
		UpdateMode: r.UpdateMode,
		Hash:       hash,
		Protected:  r.Protected,
		Name:       name,
		Kind:       kind,
		Endpoint:   FormatEndpoint(template, dep.Namespace),
		Body:       string(body),
	}, nil
}

// marshalBody serializes obj with sorted keys, keeping integers exact.
func marshalBody(obj map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
