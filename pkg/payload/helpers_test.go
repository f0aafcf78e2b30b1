package payload

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type fakeEndpoints map[Kind]string

func (f fakeEndpoints) ResolveEndpoint(kind Kind) (string, error) {
	if e, ok := f[kind]; ok {
		return e, nil
	}
	return "", fmt.Errorf("no endpoint for kind %q", kind)
}

var testEndpoints = fakeEndpoints{
	KindNamespace:  "/api/v1/namespaces",
	KindConfigMap:  "/api/v1/namespaces/{namespace}/configmaps",
	KindService:    "/api/v1/namespaces/{namespace}/services",
	KindDeployment: "/apis/apps/v1/namespaces/{namespace}/deployments",
}

func newTestResource(file string, obj map[string]interface{}) *Resource {
	return &Resource{
		File:       file,
		Value:      &unstructured.Unstructured{Object: obj},
		UpdateMode: UpdateModeUpdate,
		Hash:       true,
	}
}

func deploymentObject() map[string]interface{} {
	return map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]interface{}{
			"name": "web",
		},
		"spec": map[string]interface{}{
			"replicas": int64(1),
		},
	}
}

func serviceObject(namespace string) map[string]interface{} {
	metadata := map[string]interface{}{
		"name": "web",
	}
	if namespace != "" {
		metadata["namespace"] = namespace
	}
	return map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Service",
		"metadata":   metadata,
		"spec": map[string]interface{}{
			"ports": []interface{}{
				map[string]interface{}{"port": int64(80)},
			},
		},
	}
}

func annotationsOf(r *Resource) map[string]interface{} {
	return r.Value.Object["metadata"].(map[string]interface{})["annotations"].(map[string]interface{})
}
