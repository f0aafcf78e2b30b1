package payload

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/openshift/kpm-deployer/lib"
)

const (
	// ManifestFile describes a package.
	ManifestFile = "manifest.yaml"
	// TemplatesDir holds the resource manifests of a package.
	TemplatesDir = "templates"
	// SelfDependency refers to the package declaring the deploy list.
	SelfDependency = "$self"
)

type packageManifest struct {
	Package struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"package"`
	Namespace string                 `json:"namespace,omitempty"`
	Variables map[string]interface{} `json:"variables,omitempty"`
	Resources []resourceEntry        `json:"resources,omitempty"`
	Deploy    []deployEntry          `json:"deploy,omitempty"`
}

type resourceEntry struct {
	File       string                 `json:"file"`
	Name       string                 `json:"name,omitempty"`
	Protected  bool                   `json:"protected,omitempty"`
	Hash       *bool                  `json:"hash,omitempty"`
	UpdateMode string                 `json:"update_mode,omitempty"`
	Order      int                    `json:"order,omitempty"`
	Patch      []PatchOperation       `json:"patch,omitempty"`
	Variables  map[string]interface{} `json:"variables,omitempty"`
}

type deployEntry struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// LoadOptions configures how a package and its dependencies are loaded.
type LoadOptions struct {
	// PackagesDir holds dependencies, one directory per package name.
	// Defaults to the parent directory of the loaded package.
	PackagesDir string

	// Namespace, if set, overrides the namespace of every package.
	Namespace string
}

type loadedPackage struct {
	pkg    *Package
	deploy []deployEntry
}

type loader struct {
	opts      LoadOptions
	namespace string

	packages map[string]*loadedPackage
	visiting map[string]bool
}

// Load reads the package in dir and resolves its deploy list. Dependencies
// are flattened depth first in declaration order; a package appears once,
// at its first position. The namespace of the root package, or the
// override, is inherited by every dependency.
func Load(dir string, opts LoadOptions) (*Package, error) {
	if opts.PackagesDir == "" {
		opts.PackagesDir = filepath.Dir(filepath.Clean(dir))
	}
	l := &loader{
		opts:     opts,
		packages: map[string]*loadedPackage{},
		visiting: map[string]bool{},
	}

	root, err := l.readPackage(dir)
	if err != nil {
		return nil, err
	}
	l.namespace = opts.Namespace
	if l.namespace == "" {
		l.namespace = root.pkg.Namespace
	}
	l.packages[root.pkg.Name] = root

	seen := map[string]bool{}
	deps, err := l.resolve(root, seen)
	if err != nil {
		return nil, err
	}
	root.pkg.Dependencies = deps
	if l.namespace != "" {
		root.pkg.Namespace = l.namespace
		for _, dep := range deps {
			dep.Namespace = l.namespace
		}
	}
	klog.V(2).Infof("Loaded %s with %d dependencies", root.pkg, len(deps))
	return root.pkg, nil
}

func (l *loader) resolve(lp *loadedPackage, seen map[string]bool) ([]*Package, error) {
	l.visiting[lp.pkg.Name] = true
	defer delete(l.visiting, lp.pkg.Name)

	var out []*Package
	for _, entry := range lp.deploy {
		if entry.Name == SelfDependency || entry.Name == lp.pkg.Name {
			if !seen[lp.pkg.Name] {
				seen[lp.pkg.Name] = true
				out = append(out, lp.pkg)
			}
			continue
		}
		if l.visiting[entry.Name] {
			return nil, &Error{
				Reason:  ReasonLoadError,
				Message: fmt.Sprintf("dependency cycle: %s depends on %s", lp.pkg.Name, entry.Name),
				Name:    entry.Name,
			}
		}
		if seen[entry.Name] {
			continue
		}
		dep, err := l.dependency(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load dependency %s of %s", entry.Name, lp.pkg)
		}
		transitive, err := l.resolve(dep, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, transitive...)
	}
	return out, nil
}

func (l *loader) dependency(entry deployEntry) (*loadedPackage, error) {
	lp, ok := l.packages[entry.Name]
	if !ok {
		var err error
		lp, err = l.readPackage(filepath.Join(l.opts.PackagesDir, entry.Name))
		if err != nil {
			return nil, err
		}
		if lp.pkg.Name != entry.Name {
			return nil, &Error{
				Reason:  ReasonLoadError,
				Message: fmt.Sprintf("package directory %s declares package %s", entry.Name, lp.pkg.Name),
				Name:    entry.Name,
			}
		}
		l.packages[entry.Name] = lp
	}
	if entry.Version != "" && entry.Version != lp.pkg.Version {
		return nil, &Error{
			Reason:  ReasonLoadError,
			Message: fmt.Sprintf("package %s is at version %s, %s requested", entry.Name, lp.pkg.Version, entry.Version),
			Name:    entry.Name,
		}
	}
	return lp, nil
}

// readPackage reads a single package without resolving its dependencies.
func (l *loader) readPackage(dir string) (*loadedPackage, error) {
	klog.V(4).Infof("Loading package from %q", dir)
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Nested: err, Reason: ReasonLoadError, Message: fmt.Sprintf("could not read %s: %v", path, err), File: path}
	}
	var pm packageManifest
	if err := yaml.Unmarshal(data, &pm); err != nil {
		return nil, &Error{Nested: err, Reason: ReasonLoadError, Message: fmt.Sprintf("invalid package manifest %s: %v", path, err), File: path}
	}
	if pm.Package.Name == "" {
		return nil, &Error{Reason: ReasonLoadError, Message: fmt.Sprintf("invalid package manifest %s: package.name is required", path), File: path}
	}
	if _, err := semver.ParseTolerant(pm.Package.Version); err != nil {
		return nil, &Error{Nested: err, Reason: ReasonLoadError, Message: fmt.Sprintf("invalid package manifest %s: version %q: %v", path, pm.Package.Version, err), File: path}
	}

	resources, err := loadResources(filepath.Join(dir, TemplatesDir), pm.Resources)
	if err != nil {
		return nil, &Error{Nested: err, Reason: ReasonLoadError, Message: fmt.Sprintf("error loading resources of %s: %v", pm.Package.Name, err), File: path}
	}

	pkg := NewPackage(pm.Package.Name, pm.Package.Version, pm.Namespace, resources)
	pkg.Variables = pm.Variables
	deploy := pm.Deploy
	if len(deploy) == 0 {
		deploy = []deployEntry{{Name: SelfDependency}}
	}
	return &loadedPackage{pkg: pkg, deploy: deploy}, nil
}

// loadResources reads the resources listed in entries from dir. Without
// entries, every file of dir is loaded in increasing order of its name.
func loadResources(dir string, entries []resourceEntry) ([]*Resource, error) {
	if len(entries) == 0 {
		return discoverResources(dir)
	}

	var resources []*Resource
	var errs []error
	for _, entry := range entries {
		r, err := loadResource(dir, entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resources = append(resources, r)
	}

	agg := utilerrors.NewAggregate(errs)
	if agg != nil {
		return nil, agg
	}
	return resources, nil
}

func loadResource(dir string, entry resourceEntry) (*Resource, error) {
	if entry.File == "" {
		return nil, fmt.Errorf("resource without file")
	}
	mode, err := ParseUpdateMode(entry.UpdateMode)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", entry.File, err)
	}
	for i, op := range entry.Patch {
		if !op.Op.Valid() {
			return nil, fmt.Errorf("%s: patch %d has unknown operation %q", entry.File, i, op.Op)
		}
		if op.Op.needsValue() && !op.valued() {
			return nil, fmt.Errorf("%s: patch %d (%s) is missing its value", entry.File, i, op)
		}
	}

	ms, err := lib.LoadManifestFile(filepath.Join(dir, entry.File), entry.File)
	if err != nil {
		return nil, err
	}
	if len(ms) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one manifest, found %d", entry.File, len(ms))
	}

	hash := true
	if entry.Hash != nil {
		hash = *entry.Hash
	}
	return &Resource{
		File:       entry.File,
		Name:       entry.Name,
		Value:      ms[0].Obj,
		Patch:      entry.Patch,
		Protected:  entry.Protected,
		UpdateMode: mode,
		Hash:       hash,
		Order:      entry.Order,
		Variables:  entry.Variables,
	}, nil
}

func discoverResources(dir string) ([]*Resource, error) {
	fs, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(fs, func(i, j int) bool {
		return fs[i].Name() < fs[j].Name()
	})

	var resources []*Resource
	var errs []error
	for _, f := range fs {
		if f.IsDir() {
			continue
		}
		switch filepath.Ext(f.Name()) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		ms, err := lib.LoadManifestFile(filepath.Join(dir, f.Name()), f.Name())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range ms {
			klog.V(4).Infof("Discovered %s", &m)
			resources = append(resources, &Resource{
				File:       f.Name(),
				Value:      m.Obj,
				UpdateMode: UpdateModeUpdate,
				Hash:       true,
			})
		}
	}

	agg := utilerrors.NewAggregate(errs)
	if agg != nil {
		return nil, agg
	}
	return resources, nil
}
