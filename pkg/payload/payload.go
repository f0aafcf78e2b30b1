package payload

import (
	"fmt"
)

// Package is a named, versioned bundle of manifests. Its dependencies are
// already resolved and ordered; building a package deploys the resources of
// each dependency in turn.
type Package struct {
	Name      string
	Version   string
	Namespace string

	Dependencies []*Package
	Variables    map[string]interface{}

	// raw holds the resources as loaded. They are never handed out
	// directly, see LoadRawResources.
	raw []*Resource
}

// NewPackage returns a package owning the given raw resources.
func NewPackage(name, version, namespace string, resources []*Resource) *Package {
	return &Package{
		Name:      name,
		Version:   version,
		Namespace: namespace,
		raw:       resources,
	}
}

// LoadRawResources returns a fresh copy of the resources of the package, in
// declaration order. It has no side effects: every call returns unpatched,
// unannotated resources that the caller owns exclusively.
func (p *Package) LoadRawResources() []*Resource {
	out := make([]*Resource, 0, len(p.raw))
	for _, r := range p.raw {
		out = append(out, r.DeepCopy())
	}
	return out
}

// Info returns the identity of the package.
func (p *Package) Info() PackageInfo {
	return PackageInfo{Name: p.Name, Version: p.Version}
}

func (p *Package) String() string {
	return fmt.Sprintf("%s@%s", p.Name, p.Version)
}

// PackageInfo identifies a package.
type PackageInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// BuildResult is the deploy plan of a package.
type BuildResult struct {
	Deploy  []DeployUnit `json:"deploy" yaml:"deploy"`
	Package PackageInfo  `json:"package" yaml:"package"`
}

// DeployUnit holds the built resources of one dependency.
type DeployUnit struct {
	Package   string          `json:"package" yaml:"package"`
	Version   string          `json:"version" yaml:"version"`
	Namespace string          `json:"namespace" yaml:"namespace"`
	Resources []BuiltResource `json:"resources" yaml:"resources"`
}

// BuiltResource is the flat record a resource is applied from.
type BuiltResource struct {
	File       string     `json:"file" yaml:"file"`
	UpdateMode UpdateMode `json:"update_mode" yaml:"update_mode"`
	// Hash is nil when hashing is disabled for the resource.
	Hash      *string `json:"hash" yaml:"hash"`
	Protected bool    `json:"protected" yaml:"protected"`
	Name      string  `json:"name" yaml:"name"`
	Kind      Kind    `json:"kind" yaml:"kind"`
	Endpoint  string  `json:"endpoint" yaml:"endpoint"`
	// Body is the canonical JSON of the patched and annotated manifest.
	Body string `json:"body" yaml:"body"`
}
