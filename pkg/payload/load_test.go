package payload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const webDeployment = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
spec:
  replicas: 1
`

const webService = `apiVersion: v1
kind: Service
metadata:
  name: web
spec:
  ports:
  - port: 80
`

// writePackage creates <root>/<name> with the given manifest.yaml and
// template files.
func writePackage(t *testing.T, root, name, manifest string, templates map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, TemplatesDir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	for file, content := range templates {
		path := filepath.Join(dir, TemplatesDir, file)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func dependencyNames(pkg *Package) []string {
	var names []string
	for _, dep := range pkg.Dependencies {
		names = append(names, dep.Name)
	}
	return names
}

func TestLoadResolvesDependencies(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "db", `
package: {name: db, version: 2.0.0}
`, map[string]string{"db.yaml": webDeployment})
	writePackage(t, root, "cache", `
package: {name: cache, version: 1.2.0}
deploy:
- name: db
- name: $self
`, map[string]string{"cache.yaml": webDeployment})
	dir := writePackage(t, root, "app", `
package: {name: app, version: 1.0.0}
namespace: prod
deploy:
- name: db
  version: 2.0.0
- name: cache
- name: $self
`, map[string]string{"web.yaml": webService})

	pkg, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"db", "cache", "app"}, dependencyNames(pkg)); diff != "" {
		t.Errorf("unexpected dependencies (-want +got):\n%s", diff)
	}
	for _, dep := range pkg.Dependencies {
		if dep.Namespace != "prod" {
			t.Errorf("%s: expected namespace prod, got %q", dep, dep.Namespace)
		}
	}
	if pkg.Dependencies[2] != pkg {
		t.Errorf("$self did not resolve to the root package")
	}
}

func TestLoadNamespaceOverride(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "db", `
package: {name: db, version: 2.0.0}
namespace: storage
`, map[string]string{"db.yaml": webDeployment})
	dir := writePackage(t, root, "app", `
package: {name: app, version: 1.0.0}
namespace: prod
deploy:
- name: db
- name: $self
`, map[string]string{"web.yaml": webService})

	pkg, err := Load(dir, LoadOptions{Namespace: "staging"})
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Namespace != "staging" {
		t.Errorf("expected root namespace staging, got %q", pkg.Namespace)
	}
	for _, dep := range pkg.Dependencies {
		if dep.Namespace != "staging" {
			t.Errorf("%s: expected namespace staging, got %q", dep, dep.Namespace)
		}
	}
}

func TestLoadResourceEntries(t *testing.T) {
	root := t.TempDir()
	dir := writePackage(t, root, "app", `
package: {name: app, version: 1.0.0}
resources:
- file: svc/web.yaml
  name: frontend
  protected: true
  hash: false
  update_mode: replace
  patch:
  - op: replace
    path: /spec/ports/0/port
    value: 8080
- file: deploy.yaml
`, map[string]string{"svc/web.yaml": webService, "deploy.yaml": webDeployment})

	pkg, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	resources := pkg.LoadRawResources()
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}
	svc := resources[0]
	if svc.File != "svc/web.yaml" || svc.Name != "frontend" || !svc.Protected || svc.Hash || svc.UpdateMode != UpdateModeReplace {
		t.Errorf("unexpected service resource %+v", svc)
	}
	if len(svc.Patch) != 1 || svc.Patch[0].Op != PatchOpReplace {
		t.Errorf("unexpected patches %v", svc.Patch)
	}
	deploy := resources[1]
	if !deploy.Hash || deploy.Protected || deploy.UpdateMode != UpdateModeUpdate {
		t.Errorf("unexpected defaults %+v", deploy)
	}
	if deploy.Kind() != KindDeployment {
		t.Errorf("unexpected kind %q", deploy.Kind())
	}

	// the loaded package must build
	if err := ApplyPatches(resources, ""); err != nil {
		t.Fatal(err)
	}
	ports := resources[0].Value.Object["spec"].(map[string]interface{})["ports"].([]interface{})
	if port := ports[0].(map[string]interface{})["port"]; port != int64(8080) {
		t.Errorf("expected port 8080, got %#v", port)
	}
}

func TestLoadPatchNullValue(t *testing.T) {
	root := t.TempDir()
	dir := writePackage(t, root, "app", `
package: {name: app, version: 1.0.0}
resources:
- file: web.yaml
  patch:
  - {op: add, path: /metadata/labels, value: null}
  - {op: remove, path: /metadata/labels}
`, map[string]string{"web.yaml": webDeployment})

	pkg, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	resources := pkg.LoadRawResources()
	if ops := resources[0].Patch; len(ops) != 2 || !ops[0].HasValue || ops[1].HasValue {
		t.Errorf("unexpected value presence %#v", ops)
	}
	if err := ApplyPatches(resources, ""); err != nil {
		t.Fatal(err)
	}
	if _, ok := resources[0].Value.Object["metadata"].(map[string]interface{})["labels"]; ok {
		t.Errorf("labels were not removed: %v", resources[0].Value.Object)
	}
}

func TestLoadDiscoversTemplates(t *testing.T) {
	root := t.TempDir()
	dir := writePackage(t, root, "app", `
package: {name: app, version: 1.0.0}
`, map[string]string{
		"b-web.yaml": webDeployment,
		"a-web.yml":  webService + "---\n" + strings.Replace(webService, "name: web", "name: admin", 1),
		"README.md":  "not a manifest",
	})

	pkg, err := Load(dir, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range pkg.LoadRawResources() {
		got = append(got, r.String())
	}
	want := []string{
		`service "web" (a-web.yml)`,
		`service "admin" (a-web.yml)`,
		`deployment "web" (b-web.yaml)`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected resources (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"app"}, dependencyNames(pkg)); diff != "" {
		t.Errorf("a package without deploy list deploys itself (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		packages map[string]string
		wantErr  string
	}{{
		name: "dependency cycle",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\ndeploy: [{name: db}]\n",
			"db":  "package: {name: db, version: 1.0.0}\ndeploy: [{name: app}, {name: $self}]\n",
		},
		wantErr: "dependency cycle: db depends on app",
	}, {
		name: "version mismatch",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\ndeploy: [{name: db, version: 3.0.0}]\n",
			"db":  "package: {name: db, version: 2.0.0}\n",
		},
		wantErr: "package db is at version 2.0.0, 3.0.0 requested",
	}, {
		name: "missing dependency",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\ndeploy: [{name: db}]\n",
		},
		wantErr: "could not read",
	}, {
		name: "misnamed dependency",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\ndeploy: [{name: db}]\n",
			"db":  "package: {name: postgres, version: 1.0.0}\n",
		},
		wantErr: "package directory db declares package postgres",
	}, {
		name: "invalid version",
		packages: map[string]string{
			"app": "package: {name: app, version: latest}\n",
		},
		wantErr: `version "latest"`,
	}, {
		name: "missing name",
		packages: map[string]string{
			"app": "package: {version: 1.0.0}\n",
		},
		wantErr: "package.name is required",
	}, {
		name: "invalid update mode",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\nresources: [{file: web.yaml, update_mode: recreate}]\n",
		},
		wantErr: `unrecognized update_mode "recreate"`,
	}, {
		name: "invalid patch operation",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\nresources: [{file: web.yaml, patch: [{op: merge, path: /spec}]}]\n",
		},
		wantErr: `patch 0 has unknown operation "merge"`,
	}, {
		name: "patch without value",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\nresources: [{file: web.yaml, patch: [{op: add, path: /x}]}]\n",
		},
		wantErr: "patch 0 (add /x) is missing its value",
	}, {
		name: "several documents",
		packages: map[string]string{
			"app": "package: {name: app, version: 1.0.0}\nresources: [{file: two.yaml}]\n",
		},
		wantErr: "expected exactly one manifest, found 2",
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := t.TempDir()
			for name, manifest := range test.packages {
				writePackage(t, root, name, manifest, map[string]string{
					"web.yaml": webDeployment,
					"two.yaml": webDeployment + "---\n" + webService,
				})
			}
			_, err := Load(filepath.Join(root, "app"), LoadOptions{})
			if err == nil {
				t.Fatalf("expected error containing %q", test.wantErr)
			}
			if !IsReason(err, ReasonLoadError) {
				t.Errorf("expected a %s, got %v", ReasonLoadError, err)
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("expected error containing %q, got %q", test.wantErr, err)
			}
		})
	}
}
