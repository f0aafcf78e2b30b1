// Package start wires command line options to the package loader, the
// builder and the deploy driver.
package start

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/flowcontrol"
	"k8s.io/klog/v2"

	"github.com/openshift/kpm-deployer/pkg/deploy"
	"github.com/openshift/kpm-deployer/pkg/display"
	"github.com/openshift/kpm-deployer/pkg/payload"
	"github.com/openshift/kpm-deployer/pkg/platform/kubernetes"
	"github.com/openshift/kpm-deployer/pkg/version"
)

// Options are the valid inputs to a build or a deploy run.
type Options struct {
	Kubeconfig string

	// PackagesDir holds the dependencies of the deployed package.
	PackagesDir string
	// Namespace overrides the namespace of every package.
	Namespace string
	Output    string
	// Colors enables colored statuses in text output.
	Colors bool

	DryRun            bool
	Force             bool
	Proxy             string
	Destination       string
	StabilizationWait time.Duration

	// for testing only
	clients deploy.ClientFactory
}

func defaultEnv(name, defaultValue string) string {
	env, ok := os.LookupEnv(name)
	if !ok {
		return defaultValue
	}
	return env
}

// NewOptions creates the default options and loads any environment
// variable overrides.
func NewOptions() *Options {
	colors, err := strconv.ParseBool(defaultEnv("KPM_COLORS", "true"))
	if err != nil {
		colors = true
	}
	return &Options{
		Kubeconfig:        os.Getenv("KUBECONFIG"),
		Output:            defaultEnv("KPM_OUTPUT", display.FormatText.String()),
		Colors:            colors,
		Proxy:             os.Getenv("KPM_PROXY"),
		Destination:       defaultEnv("KPM_DEST", payload.DefaultDestination),
		StabilizationWait: deploy.DefaultStabilizationWait,
	}
}

func (o *Options) load(dir string) (*payload.Package, error) {
	return payload.Load(dir, payload.LoadOptions{PackagesDir: o.PackagesDir, Namespace: o.Namespace})
}

// Build prints the build plan of the package in dir and writes the
// manifests under Destination, if set.
func (o *Options) Build(dir string, out io.Writer) error {
	format, err := display.ParseFormat(o.Output)
	if err != nil {
		return err
	}
	pkg, err := o.load(dir)
	if err != nil {
		return err
	}
	result, err := payload.NewBuilder(pkg, kubernetes.Endpoints{}).Build()
	if err != nil {
		return err
	}
	if o.Destination != "" {
		if err := payload.Render(o.Destination, result); err != nil {
			return err
		}
	}
	return display.Encode(out, format, result)
}

// Run applies action to every resource of the package in dir. Results are
// printed as they come in text output, and at the end otherwise.
func (o *Options) Run(ctx context.Context, dir string, action deploy.Action, out io.Writer) error {
	format, err := display.ParseFormat(o.Output)
	if err != nil {
		return err
	}
	pkg, err := o.load(dir)
	if err != nil {
		return err
	}

	clients := o.clients
	if clients == nil {
		factory, err := newClientFactory(o.Kubeconfig, o.Proxy)
		if err != nil {
			return err
		}
		clients = deploy.ClientFactoryFunc(func(namespace, body, endpoint, proxy string) (deploy.ResourceClient, error) {
			c, err := factory.NewResourceClient(namespace, body, endpoint, proxy)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	}

	var reporter deploy.Reporter
	if format == display.FormatText {
		reporter = display.NewTextReporter(out, o.Colors)
	}
	klog.V(2).Infof("%s: %s of %s", version.String, action, pkg)

	opts := deploy.Options{
		DryRun:            o.DryRun,
		Force:             o.Force,
		Proxy:             o.Proxy,
		Destination:       o.Destination,
		Action:            action,
		StabilizationWait: o.StabilizationWait,
	}
	lines, err := deploy.NewDriver(clients, kubernetes.Endpoints{}, reporter).Run(ctx, pkg, opts)
	if err != nil {
		return err
	}
	if format != display.FormatText {
		return display.Encode(out, format, lines)
	}
	return nil
}

// newClientFactory loads kubeconfig. When no configuration can be loaded
// but a proxy is set, the proxy is used as an unauthenticated API server.
func newClientFactory(kubeconfig, proxy string) (*kubernetes.ClientFactory, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = kubeconfig

	kcfg := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
	config, err := kcfg.ClientConfig()
	if err != nil {
		if proxy == "" {
			return nil, fmt.Errorf("error loading kubeconfig: %v", err)
		}
		klog.V(2).Infof("No usable kubeconfig (%v), talking to %s directly", err, proxy)
		config = &rest.Config{Host: proxy}
	}
	defaultQPS(config)
	return kubernetes.NewClientFactory(rest.AddUserAgent(config, version.UserAgent)), nil
}

func defaultQPS(config *rest.Config) {
	config.RateLimiter = flowcontrol.NewTokenBucketRateLimiter(20, 40)
}
