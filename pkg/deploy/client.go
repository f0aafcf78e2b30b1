package deploy

import (
	"context"
	"time"

	"github.com/openshift/kpm-deployer/pkg/payload"
)

// StatusOK is reported by a client when a resource needed no change.
const StatusOK = "ok"

// ResourceClient submits one built resource to the cluster.
type ResourceClient interface {
	Create(ctx context.Context, force, dry bool, strategy payload.UpdateMode) (string, error)
	Delete(ctx context.Context, force, dry bool, strategy payload.UpdateMode) (string, error)
	// Wait blocks until the resource is visible or timeout elapses.
	Wait(ctx context.Context, timeout time.Duration) error

	Kind() string
	Name() string
	Namespace() string
}

// ClientFactory returns a client for the resource in body.
type ClientFactory interface {
	NewResourceClient(namespace, body, endpoint, proxy string) (ResourceClient, error)
}

// ClientFactoryFunc adapts a function to a ClientFactory.
type ClientFactoryFunc func(namespace, body, endpoint, proxy string) (ResourceClient, error)

func (f ClientFactoryFunc) NewResourceClient(namespace, body, endpoint, proxy string) (ResourceClient, error) {
	return f(namespace, body, endpoint, proxy)
}

// Reporter presents the progress of a run.
type Reporter interface {
	Start(action Action, pkg payload.PackageInfo)
	StartUnit(index int, unit *payload.DeployUnit)
	Progress(line ResultLine)
	Finish(lines []ResultLine)
}

type nopReporter struct{}

func (nopReporter) Start(Action, payload.PackageInfo)  {}
func (nopReporter) StartUnit(int, *payload.DeployUnit) {}
func (nopReporter) Progress(ResultLine)                {}
func (nopReporter) Finish([]ResultLine)                {}
