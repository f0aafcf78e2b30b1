package payload

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewNamespaceResource(t *testing.T) {
	r := NewNamespaceResource("prod")
	if r.File != "prod-ns.yaml" {
		t.Errorf("unexpected file %q", r.File)
	}
	if r.Kind() != KindNamespace || !r.Generated || r.Order != -1 || r.Hash || !r.Protected || len(r.Patch) != 0 {
		t.Errorf("unexpected namespace resource %#v", r)
	}
	if r.UpdateMode != UpdateModeUpdate {
		t.Errorf("unexpected update mode %s", r.UpdateMode)
	}
	want := map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Namespace",
		"metadata":   map[string]interface{}{"name": "prod"},
	}
	if diff := cmp.Diff(want, r.Value.Object); diff != "" {
		t.Errorf("unexpected manifest (-want +got):\n%s", diff)
	}
}

func TestWithNamespaceInjected(t *testing.T) {
	raw := []*Resource{newTestResource("web.yaml", deploymentObject())}

	if got := WithNamespaceInjected(raw, ""); len(got) != 1 || got[0] != raw[0] {
		t.Fatalf("resources changed without a namespace: %v", got)
	}

	for i := 0; i < 3; i++ {
		got := WithNamespaceInjected(raw, "prod")
		if len(got) != 2 {
			t.Fatalf("call %d: expected 2 resources, got %d", i, len(got))
		}
		if got[0].Kind() != KindNamespace || got[0].Order != -1 {
			t.Errorf("call %d: first resource is %s", i, got[0])
		}
		if got[1] != raw[0] {
			t.Errorf("call %d: raw resource was not kept", i)
		}
	}
	if len(raw) != 1 {
		t.Errorf("input was modified: %v", raw)
	}
}
