// Package deploy applies the build plan of a package to a cluster, one
// resource at a time, and reports the outcome of each.
package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/klog/v2"

	"github.com/openshift/kpm-deployer/lib/resourcedelete"
	"github.com/openshift/kpm-deployer/pkg/payload"
)

// Driver runs a package against the cluster.
type Driver struct {
	clients   ClientFactory
	endpoints payload.EndpointResolver
	reporter  Reporter
}

// NewDriver returns a driver. A nil reporter discards progress.
func NewDriver(clients ClientFactory, endpoints payload.EndpointResolver, reporter Reporter) *Driver {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Driver{clients: clients, endpoints: endpoints, reporter: reporter}
}

// Deploy creates every resource of pkg.
func (d *Driver) Deploy(ctx context.Context, pkg *payload.Package, opts Options) ([]ResultLine, error) {
	opts.Action = ActionCreate
	return d.Run(ctx, pkg, opts)
}

// Delete deletes every resource of pkg.
func (d *Driver) Delete(ctx context.Context, pkg *payload.Package, opts Options) ([]ResultLine, error) {
	opts.Action = ActionDelete
	return d.Run(ctx, pkg, opts)
}

// Run builds pkg, then renders and submits each resource in plan order.
//
// A malformed manifest, a patch that does not apply or a manifest that
// cannot be written aborts the run, and the lines gathered so far are
// returned with the error. A resource the cluster rejects is recorded with
// a failed status and the run goes on. After a create that did not report
// StatusOK the run waits once for the resource to settle.
func (d *Driver) Run(ctx context.Context, pkg *payload.Package, opts Options) ([]ResultLine, error) {
	if opts.Destination == "" {
		opts.Destination = payload.DefaultDestination
	}
	runID := uuid.New().String()
	klog.V(2).Infof("Starting %s of %s (run %s, dry run %t, force %t)", opts.Action, pkg, runID, opts.DryRun, opts.Force)

	result, err := payload.NewBuilder(pkg, d.endpoints).Build()
	if err != nil {
		return nil, err
	}
	dir, err := payload.RenderDir(opts.Destination, result.Package)
	if err != nil {
		return nil, err
	}

	d.reporter.Start(opts.Action, result.Package)
	tasks := result.Tasks()
	lines := make([]ResultLine, 0, len(tasks))
	// every dependency gets a header, even one without resources
	started := 0
	startUnits := func(upTo int) {
		for ; started < upTo; started++ {
			d.reporter.StartUnit(started+1, &result.Deploy[started])
		}
	}
	for _, task := range tasks {
		startUnits(task.UnitIndex)
		line, err := d.apply(ctx, dir, task, opts)
		if err != nil {
			return lines, err
		}
		klog.V(2).Infof("Run %s: %s: %s", runID, task, line.Status)
		d.reporter.Progress(*line)
		lines = append(lines, *line)
	}
	startUnits(len(result.Deploy))

	if opts.Action == ActionDelete {
		if inProgress := resourcedelete.DeletesInProgress(); len(inProgress) > 0 {
			klog.V(2).Infof("Run %s: deletion still in progress for %s", runID, strings.Join(inProgress, ", "))
		}
	}
	d.reporter.Finish(lines)
	klog.V(2).Infof("Finished %s of %s (run %s)", opts.Action, pkg, runID)
	return lines, nil
}

// apply renders one resource and submits it. Only rendering errors are
// returned; cluster errors become the status of the line.
func (d *Driver) apply(ctx context.Context, dir string, task *payload.Task, opts Options) (*ResultLine, error) {
	r := task.Resource
	if _, err := payload.RenderResource(dir, r); err != nil {
		return nil, err
	}

	line := &ResultLine{
		Package:   task.Unit.Package,
		Version:   task.Unit.Version,
		Kind:      string(r.Kind),
		Dry:       opts.DryRun,
		Name:      r.Name,
		Namespace: task.Unit.Namespace,
	}
	client, err := d.clients.NewResourceClient(task.Unit.Namespace, r.Body, r.Endpoint, opts.Proxy)
	if err != nil {
		line.Status = d.failed(task, opts.Action, err)
		return line, nil
	}
	line.Kind = client.Kind()
	line.Name = client.Name()
	line.Namespace = client.Namespace()

	var status string
	switch opts.Action {
	case ActionDelete:
		status, err = client.Delete(ctx, opts.Force, opts.DryRun, r.UpdateMode)
	default:
		status, err = client.Create(ctx, opts.Force, opts.DryRun, r.UpdateMode)
	}
	if err != nil {
		line.Status = d.failed(task, opts.Action, err)
	} else {
		line.Status = status
		resourceOperations.WithLabelValues(opts.Action.String(), status).Inc()
	}

	if opts.Action == ActionCreate && line.Status != StatusOK {
		if err := client.Wait(ctx, opts.StabilizationWait); err != nil {
			klog.V(2).Infof("%s did not settle within %s: %v", task, opts.StabilizationWait, err)
		}
	}
	return line, nil
}

func (d *Driver) failed(task *payload.Task, action Action, err error) string {
	utilruntime.HandleError(fmt.Errorf("unable to %s %s: %v", action, task, err))
	resourceOperations.WithLabelValues(action.String(), failedStatus).Inc()
	resourceOperationErrors.WithLabelValues(action.String()).Inc()
	return fmt.Sprintf("%s: %s", failedStatus, payload.MessageForError(err))
}
