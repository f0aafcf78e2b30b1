package kubernetes

import (
	"fmt"

	"github.com/openshift/kpm-deployer/pkg/payload"
)

// endpoints maps kinds to the collection path their objects are created in.
// Namespaced paths contain "{namespace}".
var endpoints = map[payload.Kind]string{
	payload.KindNamespace:                "/api/v1/namespaces",
	payload.KindConfigMap:                "/api/v1/namespaces/{namespace}/configmaps",
	payload.KindSecret:                   "/api/v1/namespaces/{namespace}/secrets",
	payload.KindService:                  "/api/v1/namespaces/{namespace}/services",
	payload.KindServiceAccount:           "/api/v1/namespaces/{namespace}/serviceaccounts",
	payload.KindPod:                      "/api/v1/namespaces/{namespace}/pods",
	payload.KindReplicationController:    "/api/v1/namespaces/{namespace}/replicationcontrollers",
	payload.KindPersistentVolume:         "/api/v1/persistentvolumes",
	payload.KindPersistentVolumeClaim:    "/api/v1/namespaces/{namespace}/persistentvolumeclaims",
	payload.KindEndpoints:                "/api/v1/namespaces/{namespace}/endpoints",
	payload.KindDeployment:               "/apis/apps/v1/namespaces/{namespace}/deployments",
	payload.KindDaemonSet:                "/apis/apps/v1/namespaces/{namespace}/daemonsets",
	payload.KindStatefulSet:              "/apis/apps/v1/namespaces/{namespace}/statefulsets",
	payload.KindReplicaSet:               "/apis/apps/v1/namespaces/{namespace}/replicasets",
	payload.KindJob:                      "/apis/batch/v1/namespaces/{namespace}/jobs",
	payload.KindCronJob:                  "/apis/batch/v1/namespaces/{namespace}/cronjobs",
	payload.KindIngress:                  "/apis/networking.k8s.io/v1/namespaces/{namespace}/ingresses",
	payload.KindNetworkPolicy:            "/apis/networking.k8s.io/v1/namespaces/{namespace}/networkpolicies",
	payload.KindRole:                     "/apis/rbac.authorization.k8s.io/v1/namespaces/{namespace}/roles",
	payload.KindRoleBinding:              "/apis/rbac.authorization.k8s.io/v1/namespaces/{namespace}/rolebindings",
	payload.KindClusterRole:              "/apis/rbac.authorization.k8s.io/v1/clusterroles",
	payload.KindClusterRoleBinding:       "/apis/rbac.authorization.k8s.io/v1/clusterrolebindings",
	payload.KindHorizontalPodAutoscaler:  "/apis/autoscaling/v2/namespaces/{namespace}/horizontalpodautoscalers",
	payload.KindPodDisruptionBudget:      "/apis/policy/v1/namespaces/{namespace}/poddisruptionbudgets",
	payload.KindStorageClass:             "/apis/storage.k8s.io/v1/storageclasses",
	payload.KindCustomResourceDefinition: "/apis/apiextensions.k8s.io/v1/customresourcedefinitions",
}

// Endpoints resolves the API path of every kind the platform knows.
type Endpoints struct{}

// ResolveEndpoint implements payload.EndpointResolver.
func (Endpoints) ResolveEndpoint(kind payload.Kind) (string, error) {
	endpoint, ok := endpoints[kind]
	if !ok {
		return "", fmt.Errorf("no endpoint known for kind %q", kind)
	}
	return endpoint, nil
}
