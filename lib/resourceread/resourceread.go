// Package resourceread reads API objects from bytes.
package resourceread

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// ReadUnstructured reads an object of any kind from JSON bytes.
func ReadUnstructured(objBytes []byte) (*unstructured.Unstructured, error) {
	obj, err := runtime.Decode(unstructured.UnstructuredJSONScheme, objBytes)
	if err != nil {
		return nil, err
	}
	ud, ok := obj.(*unstructured.Unstructured)
	if !ok {
		return nil, fmt.Errorf("expected object to decode into *unstructured.Unstructured, got %T", obj)
	}
	return ud, nil
}
