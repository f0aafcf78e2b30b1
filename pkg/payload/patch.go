package payload

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"k8s.io/klog/v2"
)

const namespacePath = "/metadata/namespace"

// toJSONPatch returns the RFC 6902 representation of the operation.
func (o PatchOperation) toJSONPatch() map[string]interface{} {
	out := map[string]interface{}{
		"op":   string(o.Op),
		"path": o.Path,
	}
	switch o.Op {
	case PatchOpAdd, PatchOpReplace, PatchOpTest:
		if o.valued() {
			out["value"] = o.Value
		}
	case PatchOpMove, PatchOpCopy:
		out["from"] = o.From
	}
	return out
}

// ApplyPatches applies the patches of every resource to its manifest. When
// namespace is set, each resource first gets an operation pointing
// metadata.namespace at it: replace if the manifest declares a namespace,
// add otherwise.
//
// The patches of one resource are atomic: the manifest is only replaced
// once every operation succeeded.
func ApplyPatches(resources []*Resource, namespace string) error {
	for _, r := range resources {
		if err := applyPatches(r, namespace); err != nil {
			return err
		}
	}
	return nil
}

func applyPatches(r *Resource, namespace string) error {
	if r.patched {
		return newManifestError(r, "patches were already applied", nil)
	}
	metadata, err := r.metadata()
	if err != nil {
		return err
	}

	if namespace != "" {
		op := PatchOpAdd
		if _, ok := metadata["namespace"]; ok {
			op = PatchOpReplace
		}
		r.Patch = append(r.Patch, PatchOperation{Op: op, Path: namespacePath, Value: namespace})
	}
	r.patched = true
	if len(r.Patch) == 0 {
		return nil
	}

	doc, err := json.Marshal(r.Value.Object)
	if err != nil {
		return newManifestError(r, "could not serialize manifest", err)
	}
	for i, op := range r.Patch {
		if !op.Op.Valid() {
			return newPatchError(r, i, op, fmt.Errorf("unknown operation %q", op.Op))
		}
		if op.Op.needsValue() && !op.valued() {
			return newPatchError(r, i, op, fmt.Errorf("%s operation is missing its value", op.Op))
		}
		raw, err := json.Marshal([]interface{}{op.toJSONPatch()})
		if err != nil {
			return newPatchError(r, i, op, err)
		}
		patch, err := jsonpatch.DecodePatch(raw)
		if err != nil {
			return newPatchError(r, i, op, err)
		}
		doc, err = patch.Apply(doc)
		if err != nil {
			return newPatchError(r, i, op, err)
		}
	}

	var obj map[string]interface{}
	if err := utiljson.Unmarshal(doc, &obj); err != nil {
		return newManifestError(r, "could not decode patched manifest", err)
	}
	r.Value = &unstructured.Unstructured{Object: obj}
	klog.V(4).Infof("Applied %d patches to %s", len(r.Patch), r.File)
	return nil
}
