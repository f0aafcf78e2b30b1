package payload

import (
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// UpdateMode selects how an existing cluster object is brought in line
// with its manifest.
type UpdateMode int

const (
	// UpdateModeUpdate replaces the existing object in place, keeping
	// its identity.
	UpdateModeUpdate UpdateMode = iota
	// UpdateModeReplace deletes the existing object and creates it again.
	UpdateModeReplace
)

func (m UpdateMode) String() string {
	switch m {
	case UpdateModeUpdate:
		return "update"
	case UpdateModeReplace:
		return "replace"
	default:
		panic(fmt.Sprintf("unrecognized update mode %d", int(m)))
	}
}

// ParseUpdateMode converts the manifest representation of an update mode.
// An empty string selects UpdateModeUpdate.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "", "update":
		return UpdateModeUpdate, nil
	case "replace":
		return UpdateModeReplace, nil
	default:
		return UpdateModeUpdate, fmt.Errorf("unrecognized update_mode %q", s)
	}
}

func (m UpdateMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *UpdateMode) UnmarshalText(text []byte) error {
	mode, err := ParseUpdateMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Kind is the lowercased kind of a manifest.
type Kind string

const (
	KindNamespace                Kind = "namespace"
	KindConfigMap                Kind = "configmap"
	KindSecret                   Kind = "secret"
	KindService                  Kind = "service"
	KindServiceAccount           Kind = "serviceaccount"
	KindPod                      Kind = "pod"
	KindReplicationController    Kind = "replicationcontroller"
	KindPersistentVolume         Kind = "persistentvolume"
	KindPersistentVolumeClaim    Kind = "persistentvolumeclaim"
	KindEndpoints                Kind = "endpoints"
	KindDeployment               Kind = "deployment"
	KindDaemonSet                Kind = "daemonset"
	KindStatefulSet              Kind = "statefulset"
	KindReplicaSet               Kind = "replicaset"
	KindJob                      Kind = "job"
	KindCronJob                  Kind = "cronjob"
	KindIngress                  Kind = "ingress"
	KindNetworkPolicy            Kind = "networkpolicy"
	KindRole                     Kind = "role"
	KindRoleBinding              Kind = "rolebinding"
	KindClusterRole              Kind = "clusterrole"
	KindClusterRoleBinding       Kind = "clusterrolebinding"
	KindHorizontalPodAutoscaler  Kind = "horizontalpodautoscaler"
	KindPodDisruptionBudget      Kind = "poddisruptionbudget"
	KindStorageClass             Kind = "storageclass"
	KindCustomResourceDefinition Kind = "customresourcedefinition"
)

// PatchOp is a JSON-Patch (RFC 6902) operation name.
type PatchOp string

const (
	PatchOpAdd     PatchOp = "add"
	PatchOpRemove  PatchOp = "remove"
	PatchOpReplace PatchOp = "replace"
	PatchOpMove    PatchOp = "move"
	PatchOpCopy    PatchOp = "copy"
	PatchOpTest    PatchOp = "test"
)

// Valid reports whether op is one of the RFC 6902 operations.
func (op PatchOp) Valid() bool {
	switch op {
	case PatchOpAdd, PatchOpRemove, PatchOpReplace, PatchOpMove, PatchOpCopy, PatchOpTest:
		return true
	default:
		return false
	}
}

// PatchOperation is a single JSON-Patch operation.
type PatchOperation struct {
	Op    PatchOp     `json:"op"`
	Path  string      `json:"path"`
	From  string      `json:"from,omitempty"`
	Value interface{} `json:"value,omitempty"`

	// HasValue records that value was given, even as null.
	HasValue bool `json:"-"`
}

// needsValue reports whether op carries a value operand.
func (op PatchOp) needsValue() bool {
	return op == PatchOpAdd || op == PatchOpReplace || op == PatchOpTest
}

// valued reports whether a value was supplied for the operation.
func (o PatchOperation) valued() bool {
	return o.Value != nil || o.HasValue
}

func (o *PatchOperation) UnmarshalJSON(data []byte) error {
	type plain PatchOperation
	var op plain
	if err := json.Unmarshal(data, &op); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	_, op.HasValue = fields["value"]
	*o = PatchOperation(op)
	return nil
}

func (o PatchOperation) String() string {
	if o.From != "" {
		return fmt.Sprintf("%s %s -> %s", o.Op, o.From, o.Path)
	}
	return fmt.Sprintf("%s %s", o.Op, o.Path)
}

// Resource is one manifest of a package together with the metadata that
// drives how it is built and applied.
//
// A Resource is built exactly once: the patch engine consumes Patch and the
// annotator stamps Value in place. Every build stage holds the Resource
// exclusively; LoadRawResources hands out fresh copies for that reason.
type Resource struct {
	File       string
	Name       string
	Value      *unstructured.Unstructured
	Patch      []PatchOperation
	Protected  bool
	UpdateMode UpdateMode
	Hash       bool
	Generated  bool
	Order      int
	Variables  map[string]interface{}

	patched bool
}

// Kind returns the lowercased kind of the manifest.
func (r *Resource) Kind() Kind {
	if r.Value == nil {
		return ""
	}
	return Kind(strings.ToLower(r.Value.GetKind()))
}

// ResourceName returns the explicit name of the resource, falling back to
// metadata.name of the manifest.
func (r *Resource) ResourceName() (string, error) {
	if r.Name != "" {
		return r.Name, nil
	}
	metadata, err := r.metadata()
	if err != nil {
		return "", err
	}
	name, ok := metadata["name"].(string)
	if !ok || name == "" {
		return "", newManifestError(r, "metadata.name is missing and no name is set", nil)
	}
	return name, nil
}

// metadata returns the metadata block of the manifest. A manifest without
// one cannot be built.
func (r *Resource) metadata() (map[string]interface{}, error) {
	if r.Value == nil || r.Value.Object == nil {
		return nil, newManifestError(r, "manifest is empty", nil)
	}
	metadata, ok := r.Value.Object["metadata"].(map[string]interface{})
	if !ok {
		return nil, newManifestError(r, "metadata is missing", nil)
	}
	return metadata, nil
}

// DeepCopy returns an exclusive copy of the resource.
func (r *Resource) DeepCopy() *Resource {
	if r == nil {
		return nil
	}
	out := *r
	if r.Value != nil {
		out.Value = r.Value.DeepCopy()
	}
	if r.Patch != nil {
		out.Patch = make([]PatchOperation, len(r.Patch))
		for i, op := range r.Patch {
			out.Patch[i] = op
			out.Patch[i].Value = runtime.DeepCopyJSONValue(op.Value)
		}
	}
	if r.Variables != nil {
		out.Variables = runtime.DeepCopyJSON(r.Variables)
	}
	return &out
}

func (r *Resource) String() string {
	name, err := r.ResourceName()
	if err != nil {
		return fmt.Sprintf("%q", r.File)
	}
	return fmt.Sprintf("%s %q (%s)", r.Kind(), name, r.File)
}
