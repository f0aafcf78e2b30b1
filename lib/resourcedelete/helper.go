package resourcedelete

import (
	"fmt"
	"sort"
	"sync"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/klog/v2"
)

// ProtectedAnnotation marks a resource that must not be removed or
// overwritten unless the caller forces it.
const ProtectedAnnotation = "kpm.protected"

type Resource struct {
	Kind      string
	Namespace string
	Name      string
}

type deleteTimes struct {
	Requested time.Time
	Verified  time.Time
}

var (
	deletedResources = struct {
		lock sync.RWMutex
		m    map[Resource]deleteTimes
	}{m: make(map[Resource]deleteTimes)}
)

// IsProtected returns whether the protected annotation is set to "true". An
// error is returned if it is set to anything but "true" or "false".
func IsProtected(annotations map[string]string) (bool, error) {
	value, ok := annotations[ProtectedAnnotation]
	if !ok {
		return false, nil
	}
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("Invalid protected annotation \"%s\" value: \"%s\"", ProtectedAnnotation, value)
	}
}

func (r Resource) uniqueName() string {
	if len(r.Namespace) == 0 {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

func (r Resource) String() string {
	return fmt.Sprintf("%s \"%s\"", r.Kind, r.uniqueName())
}

// SetDeleteRequested creates or updates entry in map to indicate resource deletion has been requested.
func SetDeleteRequested(resource Resource) {
	times := deleteTimes{
		Requested: time.Now(),
	}
	deletedResources.lock.Lock()
	deletedResources.m[resource] = times
	deletedResources.lock.Unlock()
	klog.V(2).Infof("Delete requested for %s.", resource)
}

// SetDeleteVerified updates map entry to indicate resource deletion has been completed.
func SetDeleteVerified(resource Resource) {
	deletedResources.lock.Lock()
	times := deletedResources.m[resource]
	if times.Requested.IsZero() {
		times.Requested = time.Now()
	}
	times.Verified = time.Now()
	deletedResources.m[resource] = times
	deletedResources.lock.Unlock()
	klog.V(2).Infof("Delete of %s completed.", resource)
}

// getDeleteTimes returns map entry for given resource.
func getDeleteTimes(resource Resource) (deleteTimes, bool) {
	deletedResources.lock.RLock()
	defer deletedResources.lock.RUnlock()
	deletionTimes, ok := deletedResources.m[resource]
	return deletionTimes, ok
}

// GetDeleteProgress records the outcome of a lookup made after deletion was
// requested. It returns true once the resource is gone, and an error when
// the lookup itself failed.
func GetDeleteProgress(resource Resource, getError error) (bool, error) {
	if apierrors.IsNotFound(getError) {
		if times, ok := getDeleteTimes(resource); !ok || times.Verified.IsZero() {
			SetDeleteVerified(resource)
		}
		return true, nil
	}
	if getError != nil {
		return false, fmt.Errorf("Cannot get %s to check deletion, err=%v.", resource, getError)
	}
	if times, ok := getDeleteTimes(resource); ok {
		klog.V(2).Infof("Delete of %s has been requested at %s and is still in progress.", resource, times.Requested)
	}
	return false, nil
}

// DeletesInProgress returns the sorted set of resources for which deletion has
// been requested but not yet verified.
func DeletesInProgress() []string {
	deletedResources.lock.RLock()
	defer deletedResources.lock.RUnlock()
	deletes := make([]string, 0, len(deletedResources.m))
	for k, v := range deletedResources.m {
		if v.Verified.IsZero() {
			deletes = append(deletes, k.String())
		}
	}
	sort.Strings(deletes)
	return deletes
}
