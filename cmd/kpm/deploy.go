package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/openshift/kpm-deployer/pkg/deploy"
	"github.com/openshift/kpm-deployer/pkg/start"
	"github.com/openshift/kpm-deployer/pkg/version"
)

func init() {
	rootCmd.AddCommand(
		newRunCmd(deploy.ActionCreate, "deploy <package-dir>", "Deploys a package and its dependencies."),
		newRunCmd(deploy.ActionDelete, "delete <package-dir>", "Deletes the resources of a package and its dependencies."),
	)
}

func newRunCmd(action deploy.Action, use, short string) *cobra.Command {
	opts := start.NewOptions()
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  "",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			// To help debugging, immediately log version
			klog.V(2).Infof("%s", version.String)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := opts.Run(ctx, args[0], action, os.Stdout); err != nil {
				klog.Fatalf("%s failed: %v", action, err)
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&opts.DryRun, "dry-run", opts.DryRun, "Submit every resource as a dry run.")
	flags.BoolVar(&opts.Force, "force", opts.Force, "Update or delete resources even when unchanged or protected.")
	flags.StringVar(&opts.Output, "output", opts.Output, "Output format, text, json or yaml.")
	flags.BoolVar(&opts.Colors, "colors", opts.Colors, "Color statuses in text output.")
	flags.StringVar(&opts.Proxy, "proxy", opts.Proxy, "Address of an API server proxy such as kubectl proxy.")
	flags.StringVar(&opts.Destination, "dest", opts.Destination, "Directory the submitted manifests are written to.")
	flags.StringVar(&opts.Namespace, "namespace", opts.Namespace, "Namespace every package is deployed to, overriding the manifests.")
	flags.StringVar(&opts.PackagesDir, "packages-dir", opts.PackagesDir, "Directory holding the dependencies, defaults to the parent of the package.")
	flags.StringVar(&opts.Kubeconfig, "kubeconfig", opts.Kubeconfig, "Kubeconfig file to access the cluster.")
	flags.DurationVar(&opts.StabilizationWait, "wait", opts.StabilizationWait, "How long to wait for a resource to appear after it was created or changed.")
	return cmd
}
