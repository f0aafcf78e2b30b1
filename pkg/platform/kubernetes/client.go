// Package kubernetes submits built resources to a Kubernetes API server.
//
// Resources are addressed by the endpoint computed at build time rather than
// through discovery, so a Resource client is a thin layer over an
// unversioned REST client: it compares the submitted body with the live
// object and decides between create, update, replace and delete.
package kubernetes

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"

	"github.com/openshift/kpm-deployer/lib/resourcedelete"
	"github.com/openshift/kpm-deployer/lib/resourceread"
	"github.com/openshift/kpm-deployer/pkg/payload"
)

// Statuses reported by Create and Delete.
const (
	StatusCreated   = "created"
	StatusOK        = "ok"
	StatusProtected = "protected"
	StatusUpdated   = "updated"
	StatusReplaced  = "replaced"
	StatusDeleted   = "deleted"
	StatusAbsent    = "absent"
)

const (
	defaultPollInterval  = 500 * time.Millisecond
	defaultDeleteTimeout = 30 * time.Second
)

// ClientFactory builds Resource clients sharing a base configuration.
type ClientFactory struct {
	config *rest.Config

	// PollInterval is the delay between lookups while waiting for an
	// object to appear or disappear.
	PollInterval time.Duration
	// DeleteTimeout bounds how long a replace waits for the old object
	// to be gone.
	DeleteTimeout time.Duration

	lock    sync.Mutex
	clients map[string]rest.Interface
}

// NewClientFactory returns a factory talking to the API server of config.
func NewClientFactory(config *rest.Config) *ClientFactory {
	return &ClientFactory{
		config:        config,
		PollInterval:  defaultPollInterval,
		DeleteTimeout: defaultDeleteTimeout,
		clients:       map[string]rest.Interface{},
	}
}

// restClient returns the REST client for proxy. A non-empty proxy is the
// address of an API server proxy, as served by "kubectl proxy", and replaces
// the host of the base configuration.
func (f *ClientFactory) restClient(proxy string) (rest.Interface, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if c, ok := f.clients[proxy]; ok {
		return c, nil
	}

	config := rest.CopyConfig(f.config)
	if proxy != "" {
		config.Host = proxy
		config.APIPath = ""
	}
	config.NegotiatedSerializer = scheme.Codecs.WithoutConversion()
	if config.UserAgent == "" {
		config.UserAgent = rest.DefaultKubernetesUserAgent()
	}
	c, err := rest.UnversionedRESTClientFor(config)
	if err != nil {
		return nil, fmt.Errorf("error creating client for %s: %v", config.Host, err)
	}
	f.clients[proxy] = c
	return c, nil
}

// NewResourceClient returns a client for the object in body, created in
// the collection at endpoint.
func (f *ClientFactory) NewResourceClient(namespace, body, endpoint, proxy string) (*Resource, error) {
	obj, err := resourceread.ReadUnstructured([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("error decoding resource for %s: %v", endpoint, err)
	}
	if obj.GetName() == "" {
		return nil, fmt.Errorf("resource for %s has no name", endpoint)
	}
	c, err := f.restClient(proxy)
	if err != nil {
		return nil, err
	}
	if ns := obj.GetNamespace(); ns != "" {
		namespace = ns
	}
	return &Resource{
		client:        c,
		obj:           obj,
		body:          []byte(body),
		endpoint:      endpoint,
		namespace:     namespace,
		pollInterval:  f.PollInterval,
		deleteTimeout: f.DeleteTimeout,
	}, nil
}

// Resource submits a single object.
type Resource struct {
	client    rest.Interface
	obj       *unstructured.Unstructured
	body      []byte
	endpoint  string
	namespace string

	pollInterval  time.Duration
	deleteTimeout time.Duration
}

// Kind is the lowercased kind of the object.
func (r *Resource) Kind() string {
	return strings.ToLower(r.obj.GetKind())
}

func (r *Resource) Name() string {
	return r.obj.GetName()
}

func (r *Resource) Namespace() string {
	return r.namespace
}

func (r *Resource) String() string {
	return r.deleteKey().String()
}

func (r *Resource) objectPath() string {
	return path.Join(r.endpoint, r.obj.GetName())
}

func (r *Resource) deleteKey() resourcedelete.Resource {
	return resourcedelete.Resource{Kind: r.Kind(), Namespace: r.namespace, Name: r.Name()}
}

// get returns the live object. A missing object is reported with an error
// satisfying apierrors.IsNotFound.
func (r *Resource) get(ctx context.Context) (*unstructured.Unstructured, error) {
	res := r.client.Get().AbsPath(r.objectPath()).Do(ctx)
	if err := res.Error(); err != nil {
		return nil, err
	}
	raw, err := res.Raw()
	if err != nil {
		return nil, err
	}
	return resourceread.ReadUnstructured(raw)
}

func (r *Resource) post(ctx context.Context, dry bool) error {
	req := r.client.Post().AbsPath(r.endpoint).Body(r.body)
	if dry {
		req = req.Param("dryRun", "All")
	}
	return req.Do(ctx).Error()
}

func (r *Resource) put(ctx context.Context, existing *unstructured.Unstructured, dry bool) error {
	obj := r.obj.DeepCopy()
	obj.SetResourceVersion(existing.GetResourceVersion())
	body, err := obj.MarshalJSON()
	if err != nil {
		return err
	}
	req := r.client.Put().AbsPath(r.objectPath()).Body(body)
	if dry {
		req = req.Param("dryRun", "All")
	}
	return req.Do(ctx).Error()
}

func (r *Resource) delete(ctx context.Context, dry bool) error {
	req := r.client.Delete().AbsPath(r.objectPath()).Param("propagationPolicy", "Foreground")
	if dry {
		req = req.Param("dryRun", "All")
	}
	return req.Do(ctx).Error()
}

// isProtected reports whether the live object is marked protected.
func isProtected(existing *unstructured.Unstructured) (bool, error) {
	protected, err := resourcedelete.IsProtected(existing.GetAnnotations())
	if err != nil {
		return false, fmt.Errorf("%s %q: %v", existing.GetKind(), existing.GetName(), err)
	}
	return protected, nil
}

// Create submits the object. An absent object is created. A present one is
// left alone when its hash matches or it is protected, unless force is set;
// otherwise it is updated in place or replaced according to strategy.
func (r *Resource) Create(ctx context.Context, force, dry bool, strategy payload.UpdateMode) (string, error) {
	existing, err := r.get(ctx)
	if apierrors.IsNotFound(err) {
		klog.V(2).Infof("%s not found, creating", r)
		if err := r.post(ctx, dry); err != nil {
			return "", err
		}
		return StatusCreated, nil
	}
	if err != nil {
		return "", err
	}

	if !force {
		hash := r.obj.GetAnnotations()[payload.AnnotationHash]
		if hash != "" && hash == existing.GetAnnotations()[payload.AnnotationHash] {
			klog.V(4).Infof("%s is up to date", r)
			return StatusOK, nil
		}
		protected, err := isProtected(existing)
		if err != nil {
			return "", err
		}
		if protected {
			klog.V(2).Infof("%s is protected, not updating", r)
			return StatusProtected, nil
		}
	}

	switch strategy {
	case payload.UpdateModeReplace:
		if err := r.replace(ctx, dry); err != nil {
			return "", err
		}
		return StatusReplaced, nil
	default:
		klog.V(2).Infof("Updating %s", r)
		if err := r.put(ctx, existing, dry); err != nil {
			return "", err
		}
		return StatusUpdated, nil
	}
}

// replace deletes the live object, waits for it to be gone and creates it
// again. A dry run stops after the delete.
func (r *Resource) replace(ctx context.Context, dry bool) error {
	klog.V(2).Infof("Replacing %s", r)
	if err := r.delete(ctx, dry); err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	if dry {
		return nil
	}

	key := r.deleteKey()
	resourcedelete.SetDeleteRequested(key)
	err := wait.PollUntilContextTimeout(ctx, r.pollInterval, r.deleteTimeout, true, func(ctx context.Context) (bool, error) {
		_, err := r.get(ctx)
		return resourcedelete.GetDeleteProgress(key, err)
	})
	if err != nil {
		return fmt.Errorf("waiting for %s to be deleted: %v", r, err)
	}
	return r.post(ctx, false)
}

// Delete removes the object unless it is absent, or protected and force is
// not set.
func (r *Resource) Delete(ctx context.Context, force, dry bool, strategy payload.UpdateMode) (string, error) {
	existing, err := r.get(ctx)
	if apierrors.IsNotFound(err) {
		return StatusAbsent, nil
	}
	if err != nil {
		return "", err
	}
	if !force {
		protected, err := isProtected(existing)
		if err != nil {
			return "", err
		}
		if protected {
			klog.V(2).Infof("%s is protected, not deleting", r)
			return StatusProtected, nil
		}
	}

	klog.V(2).Infof("Deleting %s", r)
	if err := r.delete(ctx, dry); err != nil {
		if apierrors.IsNotFound(err) {
			return StatusAbsent, nil
		}
		return "", err
	}
	if !dry {
		resourcedelete.SetDeleteRequested(r.deleteKey())
	}
	return StatusDeleted, nil
}

// Wait polls until the object is visible or timeout elapses.
func (r *Resource) Wait(ctx context.Context, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, r.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		if _, err := r.get(ctx); err != nil {
			klog.V(4).Infof("%s is not available yet: %v", r, err)
			return false, nil
		}
		return true, nil
	})
}
