package resourcedelete

import (
	"errors"
	"reflect"
	"testing"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestIsProtected(t *testing.T) {
	tests := []struct {
		name          string
		annos         map[string]string
		wantProtected bool
		wantErr       bool
	}{
		{name: "no protected annotation",
			annos:         map[string]string{"foo": "bar"},
			wantProtected: false,
			wantErr:       false},
		{name: "no annotations",
			wantProtected: false,
			wantErr:       false},
		{name: "protected",
			annos:         map[string]string{"kpm.protected": "true"},
			wantProtected: true,
			wantErr:       false},
		{name: "not protected",
			annos:         map[string]string{"kpm.protected": "false"},
			wantProtected: false,
			wantErr:       false},
		{name: "invalid protected annotation",
			annos:         map[string]string{"kpm.protected": "yes"},
			wantProtected: false,
			wantErr:       true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			protected, err := IsProtected(test.annos)
			if (err != nil) != test.wantErr {
				t.Errorf("IsProtected{} error = %v, wantErr %v", err, test.wantErr)
			}
			if protected != test.wantProtected {
				t.Errorf("IsProtected{} protected = %v, wantProtected %v", protected, test.wantProtected)
			}
		})
	}
}

func TestSetDeleteVerified(t *testing.T) {
	resource := Resource{Kind: "namespace", Name: "kpm-verified"}
	SetDeleteRequested(resource)
	SetDeleteVerified(resource)
	times, found := getDeleteTimes(resource)
	if !found {
		t.Fatalf("SetDeleteVerified{} resource not found")
	}
	if times.Verified.IsZero() {
		t.Errorf("SetDeleteVerified{} resource's Verified time is zero")
	}
	if times.Requested.IsZero() {
		t.Errorf("SetDeleteVerified{} resource's Requested time was lost")
	}
}

func TestGetDeleteProgress(t *testing.T) {
	notFound := apierrors.NewNotFound(schema.GroupResource{Resource: "services"}, "web")
	tests := []struct {
		name     string
		resource Resource
		getErr   error
		wantDone bool
		wantErr  bool
	}{
		{name: "gone",
			resource: Resource{Kind: "service", Namespace: "progress", Name: "gone"},
			getErr:   notFound,
			wantDone: true},
		{name: "still there",
			resource: Resource{Kind: "service", Namespace: "progress", Name: "there"},
			wantDone: false},
		{name: "lookup failed",
			resource: Resource{Kind: "service", Namespace: "progress", Name: "failed"},
			getErr:   errors.New("connection refused"),
			wantErr:  true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			SetDeleteRequested(test.resource)
			done, err := GetDeleteProgress(test.resource, test.getErr)
			if (err != nil) != test.wantErr {
				t.Errorf("GetDeleteProgress{} error = %v, wantErr %v", err, test.wantErr)
			}
			if done != test.wantDone {
				t.Errorf("GetDeleteProgress{} done = %v, wantDone %v", done, test.wantDone)
			}
		})
	}
}

func TestDeletesInProgress(t *testing.T) {
	deletedResources.lock.Lock()
	deletedResources.m = make(map[Resource]deleteTimes)
	deletedResources.lock.Unlock()

	tests := []struct {
		name           string
		resources      []Resource
		delTime        deleteTimes
		wantInProgress []string
	}{
		{name: "2 deletes in progress",
			resources: []Resource{
				{Kind: "service",
					Namespace: "foo",
					Name:      "bar"},
				{Kind: "deployment",
					Namespace: "prod",
					Name:      "web"}},
			delTime: deleteTimes{
				Requested: time.Now()},
			wantInProgress: []string{"deployment \"prod/web\"",
				"service \"foo/bar\""}},
		{name: "no deletes in progress",
			resources: []Resource{
				{Kind: "service",
					Namespace: "foo",
					Name:      "bar"},
				{Kind: "deployment",
					Namespace: "prod",
					Name:      "web"}},
			delTime: deleteTimes{
				Requested: time.Now(),
				Verified:  time.Now()},
			wantInProgress: []string{}},
	}
	for _, test := range tests {
		for _, r := range test.resources {
			deletedResources.m[r] = test.delTime
		}
		t.Run(test.name, func(t *testing.T) {
			deletes := DeletesInProgress()
			if !reflect.DeepEqual(deletes, test.wantInProgress) {
				t.Errorf("DeletesInProgress{} = %v, want %v", deletes, test.wantInProgress)
			}
		})
	}
}
