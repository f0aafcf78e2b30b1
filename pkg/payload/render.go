package payload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
)

// DefaultDestination is where rendered manifests are written unless told
// otherwise.
const DefaultDestination = "/tmp/kpm"

// RenderDir creates and returns <dest>/<name>/<version>.
func RenderDir(dest string, pkg PackageInfo) (string, error) {
	dir := filepath.Join(dest, pkg.Name, pkg.Version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &Error{
			Nested:  err,
			Reason:  ReasonIOError,
			Message: fmt.Sprintf("could not create %s: %v", dir, err),
		}
	}
	return dir, nil
}

// RenderedFilename returns the flat file name the body of r is written to.
func RenderedFilename(r *BuiltResource) string {
	return fmt.Sprintf("%s-%s", r.Name, strings.ReplaceAll(r.File, "/", "_"))
}

// RenderResource writes the body of r into dir and returns the path written.
func RenderResource(dir string, r *BuiltResource) (string, error) {
	path := filepath.Join(dir, RenderedFilename(r))
	if err := os.WriteFile(path, []byte(r.Body), 0644); err != nil {
		return "", &Error{
			Nested:  err,
			Reason:  ReasonIOError,
			Message: fmt.Sprintf("could not write %s for %s: %v", path, r.File, err),
			Name:    r.Name,
			File:    r.File,
		}
	}
	klog.V(4).Infof("Rendered %s to %s", r.File, path)
	return path, nil
}

// Render writes every resource of the plan to <dest>/<name>/<version>.
func Render(dest string, result *BuildResult) error {
	dir, err := RenderDir(dest, result.Package)
	if err != nil {
		return err
	}
	var errs []error
	for _, unit := range result.Deploy {
		for i := range unit.Resources {
			if _, err := RenderResource(dir, &unit.Resources[i]); err != nil {
				errs = append(errs, err)
			}
		}
	}

	agg := utilerrors.NewAggregate(errs)
	if agg != nil {
		return fmt.Errorf("error rendering manifests: %v", agg.Error())
	}
	return nil
}
