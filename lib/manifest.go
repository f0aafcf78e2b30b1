package lib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"k8s.io/apimachinery/pkg/util/yaml"
)

// Manifest stores a single Kubernetes object read from a template file.
// It stores the GroupVersionKind for the manifest when the document
// declares one; a document without kind or metadata still parses, the
// package builder is responsible for rejecting it.
type Manifest struct {
	OriginalFilename string
	Raw              []byte
	GVK              schema.GroupVersionKind

	Obj *unstructured.Unstructured
}

// UnmarshalJSON unmarshals bytes of single kubernetes object to Manifest.
func (m *Manifest) UnmarshalJSON(in []byte) error {
	if m == nil {
		return errors.New("Manifest: UnmarshalJSON on nil pointer")
	}

	// This happens when marshalling
	// <yaml>
	// ---	(this between two `---`)
	// ---
	// <yaml>
	if bytes.Equal(in, []byte("null")) {
		m.Raw = nil
		return nil
	}

	m.Raw = append(m.Raw[0:0], in...)
	var obj map[string]interface{}
	if err := utiljson.Unmarshal(in, &obj); err != nil {
		return fmt.Errorf("unable to decode manifest: %v", err)
	}
	if obj == nil {
		return fmt.Errorf("expected manifest to decode into an object, got %s", string(in))
	}

	ud := &unstructured.Unstructured{Object: obj}
	m.GVK = ud.GroupVersionKind()
	m.Obj = ud
	return nil
}

// String returns a human readable identity for the manifest.
func (m *Manifest) String() string {
	if m.Obj == nil {
		return fmt.Sprintf("%q", m.OriginalFilename)
	}
	if ns := m.Obj.GetNamespace(); ns != "" {
		return fmt.Sprintf("%s \"%s/%s\" (%s)", m.GVK.Kind, ns, m.Obj.GetName(), m.OriginalFilename)
	}
	return fmt.Sprintf("%s %q (%s)", m.GVK.Kind, m.Obj.GetName(), m.OriginalFilename)
}

// LoadManifestFile reads all the manifests stored in the file at path.
// Every returned manifest carries name as its OriginalFilename.
func LoadManifestFile(path, name string) ([]Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %v", path, err)
	}
	defer file.Close()

	ms, err := ParseManifests(file)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", path, err)
	}
	for i := range ms {
		ms[i].OriginalFilename = name
	}
	return ms, nil
}

// ParseManifests parses a YAML or JSON document that may contain one or more
// kubernetes resources.
func ParseManifests(r io.Reader) ([]Manifest, error) {
	d := yaml.NewYAMLOrJSONDecoder(r, 1024)
	var manifests []Manifest
	for {
		m := Manifest{}
		if err := d.Decode(&m); err != nil {
			if err == io.EOF {
				return manifests, nil
			}
			return manifests, fmt.Errorf("error parsing: %v", err)
		}
		m.Raw = bytes.TrimSpace(m.Raw)
		if len(m.Raw) == 0 || bytes.Equal(m.Raw, []byte("null")) {
			continue
		}
		manifests = append(manifests, m)
	}
}
