package pubgrub

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const universeYAML = `
root:
  name: app
  dependencies:
    a: ^1.0.0
    b: 1.0.0..2.0.0
packages:
  a:
    1.0.0:
      c: ^1.0.0
    1.1.0: {}
  b:
    1.0.0: {}
  c:
    1.0.0: {}
`

func TestParseRegistry(t *testing.T) {
	r, err := ParseRegistry([]byte(universeYAML))
	if err != nil {
		t.Fatalf("ParseRegistry: %s", err)
	}
	if r.Root() != "app" {
		t.Errorf("root = %s, want app", r.Root())
	}

	pkgs := r.Packages()
	want := []PackageRef{"a", "app", "b", "c"}
	if len(pkgs) != len(want) {
		t.Fatalf("packages = %v, want %v", pkgs, want)
	}
	for i := range want {
		if pkgs[i] != want[i] {
			t.Errorf("package %d = %s, want %s", i, pkgs[i], want[i])
		}
	}

	var root Container
	r.GetContainer("app", false, func(c Container, err error) {
		if err != nil {
			t.Fatalf("GetContainer(app): %s", err)
		}
		root = c
	})
	deps, err := root.GetUnversionedDependencies()
	if err != nil {
		t.Fatalf("GetUnversionedDependencies: %s", err)
	}
	// Dependency lists come back name-sorted regardless of YAML map order.
	if len(deps) != 2 || deps[0].Package != "a" || deps[1].Package != "b" {
		t.Fatalf("root deps = %v, want a then b", deps)
	}
	if deps[0].Requirement.String() != ">=1.0.0 <2.0.0" {
		t.Errorf("a requirement = %s", deps[0].Requirement)
	}
}

func TestParseRegistryReportsEveryProblem(t *testing.T) {
	bad := `
root:
  name: app
  dependencies:
    a: "^x.y.z"
packages:
  a:
    not-a-version: {}
    1.0.0:
      b: "also bad"
`
	_, err := ParseRegistry([]byte(bad))
	if err == nil {
		t.Fatal("malformed registry parsed cleanly")
	}
	msg := err.Error()
	for _, frag := range []string{"^x.y.z", "not-a-version", "also bad"} {
		if !strings.Contains(msg, frag) {
			t.Errorf("aggregated error missing %q: %s", frag, msg)
		}
	}
}

func TestParseRegistryRequiresRoot(t *testing.T) {
	if _, err := ParseRegistry([]byte("packages: {}\n")); err == nil {
		t.Error("registry without a root parsed cleanly")
	}
}

func TestLoadRegistrySolvesEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	if err := os.WriteFile(path, []byte(universeYAML), 0666); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %s", err)
	}

	bindings, err := mksolver(r).Solve(r.Root(), nil)
	if err != nil {
		t.Fatalf("solve failed: %s", err)
	}
	got := bindingsToMap(t, bindings)
	// a 1.1.0 carries no c dependency, so c is never reached.
	want := map[string]string{"a": "1.1.0", "b": "1.0.0"}
	if len(got) != len(want) {
		t.Fatalf("solved %v, want %v", got, want)
	}
	for pkg, v := range want {
		if got[pkg] != v {
			t.Errorf("%s = %s, want %s", pkg, got[pkg], v)
		}
	}
}

func TestRegistryPackagesUnder(t *testing.T) {
	r := NewRegistry()
	for _, pkg := range []string{"github.com/foo/bar", "github.com/foo/baz", "github.com/quux/zot"} {
		r.AddPackage(PackageRef(pkg))
	}
	under := r.PackagesUnder("github.com/foo/")
	if len(under) != 2 || under[0] != "github.com/foo/bar" || under[1] != "github.com/foo/baz" {
		t.Errorf("PackagesUnder = %v", under)
	}
}

func TestParseRequirement(t *testing.T) {
	table := []struct {
		in   string
		want string
		bad  bool
	}{
		{in: "*", want: "*"},
		{in: "^1.2.3", want: ">=1.2.3 <2.0.0"},
		{in: "^0.1.0", want: ">=0.1.0 <1.0.0"},
		{in: "1.2.3", want: "1.2.3"},
		{in: "1.0.0..2.5.0", want: ">=1.0.0 <2.5.0"},
		{in: "revision:deadbeef", want: "revision:deadbeef"},
		{in: "unversioned", want: "unversioned"},
		{in: "", bad: true},
		{in: "^garbage", bad: true},
		{in: "2.0.0..1.0.0", bad: true},
		{in: "revision:", bad: true},
	}

	for _, fix := range table {
		req, err := ParseRequirement(fix.in)
		if fix.bad {
			if err == nil {
				t.Errorf("ParseRequirement(%q) = %s, want error", fix.in, req)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRequirement(%q): %s", fix.in, err)
			continue
		}
		if req.String() != fix.want {
			t.Errorf("ParseRequirement(%q) = %s, want %s", fix.in, req, fix.want)
		}
	}
}
