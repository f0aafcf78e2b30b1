package deploy

import (
	"fmt"
	"time"

	"github.com/openshift/kpm-deployer/pkg/payload"
)

// Action is the operation a run performs on every resource.
type Action int

const (
	// ActionCreate creates or updates every resource.
	ActionCreate Action = iota
	// ActionDelete deletes every resource.
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionDelete:
		return "delete"
	default:
		panic(fmt.Sprintf("unrecognized action %d", int(a)))
	}
}

// DefaultStabilizationWait is how long a run waits for a resource that was
// not already up to date after creating it.
const DefaultStabilizationWait = 3 * time.Second

// Options configures a run.
type Options struct {
	// DryRun is passed to the cluster; resources are still rendered.
	DryRun bool
	// Force overrides hash and protection checks.
	Force bool
	// Proxy is the address of an API server proxy, empty to use the
	// configured server.
	Proxy string
	// Destination is the directory rendered manifests are written under.
	Destination string
	Action      Action

	StabilizationWait time.Duration
}

// DefaultOptions returns the options of a plain create run.
func DefaultOptions() Options {
	return Options{
		Destination:       payload.DefaultDestination,
		Action:            ActionCreate,
		StabilizationWait: DefaultStabilizationWait,
	}
}

// ResultLine is the outcome of submitting one resource. Kind, Name and
// Namespace are the values reported by the cluster client.
type ResultLine struct {
	Package   string `json:"package" yaml:"package"`
	Version   string `json:"version" yaml:"version"`
	Kind      string `json:"kind" yaml:"kind"`
	Dry       bool   `json:"dry" yaml:"dry"`
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Status    string `json:"status" yaml:"status"`
}
