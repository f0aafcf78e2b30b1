package payload

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// NewNamespaceResource synthesizes the Namespace a package is deployed in.
// The namespace is protected, unhashed and ordered before everything else.
func NewNamespaceResource(namespace string) *Resource {
	value := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": corev1.SchemeGroupVersion.String(),
		"kind":       "Namespace",
		"metadata": map[string]interface{}{
			"name": namespace,
		},
	}}
	return &Resource{
		File:       fmt.Sprintf("%s-ns.yaml", namespace),
		Name:       namespace,
		Value:      value,
		Patch:      []PatchOperation{},
		Protected:  true,
		UpdateMode: UpdateModeUpdate,
		Hash:       false,
		Generated:  true,
		Order:      -1,
		Variables:  map[string]interface{}{},
	}
}

// WithNamespaceInjected returns resources with the synthesized namespace
// prepended when namespace is set. The input slice is never modified, so
// calling it again on the same raw list cannot duplicate the namespace.
func WithNamespaceInjected(resources []*Resource, namespace string) []*Resource {
	if namespace == "" {
		out := make([]*Resource, len(resources))
		copy(out, resources)
		return out
	}
	out := make([]*Resource, 0, len(resources)+1)
	out = append(out, NewNamespaceResource(namespace))
	return append(out, resources...)
}
