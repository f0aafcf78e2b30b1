package main

import (
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/openshift/kpm-deployer/pkg/start"
)

func init() {
	opts := start.NewOptions()
	opts.Output = "json"
	cmd := &cobra.Command{
		Use:   "build <package-dir>",
		Short: "Prints the deploy plan of a package and renders its manifests.",
		Long:  "",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := opts.Build(args[0], os.Stdout); err != nil {
				klog.Fatalf("Build command failed: %v", err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Output, "output", opts.Output, "Output format, json or yaml.")
	cmd.PersistentFlags().StringVar(&opts.Destination, "dest", opts.Destination, "Directory the manifests are rendered to, empty to skip rendering.")
	cmd.PersistentFlags().StringVar(&opts.Namespace, "namespace", opts.Namespace, "Namespace every package is built for, overriding the manifests.")
	cmd.PersistentFlags().StringVar(&opts.PackagesDir, "packages-dir", opts.PackagesDir, "Directory holding the dependencies, defaults to the parent of the package.")
	rootCmd.AddCommand(cmd)
}
