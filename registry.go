package pubgrub

import (
	"os"
	"sort"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Registry is an in-memory ContainerProvider over a declared package
// universe: every package, its versions in descending order, and the
// dependency constraints each version carries. It backs the demo binary and
// the solver's test fixtures.
type Registry struct {
	trie *containerTrie
	root PackageRef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{trie: newContainerTrie()}
}

// Root returns the root package declared by the universe, if any.
func (r *Registry) Root() PackageRef {
	return r.root
}

// Packages returns every package in the registry in lexical order.
func (r *Registry) Packages() []PackageRef {
	var pkgs []PackageRef
	r.trie.Walk(func(pkg PackageRef, _ *registryContainer) bool {
		pkgs = append(pkgs, pkg)
		return false
	})
	return pkgs
}

// PackagesUnder returns, in lexical order, the packages whose identifier
// begins with the given prefix.
func (r *Registry) PackagesUnder(prefix string) []PackageRef {
	var pkgs []PackageRef
	r.trie.WalkPrefix(prefix, func(pkg PackageRef, _ *registryContainer) bool {
		pkgs = append(pkgs, pkg)
		return false
	})
	return pkgs
}

// SetRoot declares the root package and its unversioned dependencies.
func (r *Registry) SetRoot(pkg PackageRef, deps []PackageConstraint) {
	c := r.container(pkg)
	c.unversioned = append(c.unversioned, deps...)
	r.root = pkg
}

// AddVersion declares one version of a package together with its
// dependencies. Versions may be added in any order; containers always serve
// them in descending order.
func (r *Registry) AddVersion(pkg PackageRef, version string, deps []PackageConstraint) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "adding version %q of %s", version, pkg)
	}
	c := r.container(pkg)
	c.versions = append(c.versions, v)
	sort.Slice(c.versions, func(i, j int) bool { return c.versions[i].GreaterThan(c.versions[j]) })
	c.deps[v.String()] = deps
	return nil
}

// AddPackage declares a package with no versions at all. Useful for
// universes where a package is known but nothing of it is available.
func (r *Registry) AddPackage(pkg PackageRef) {
	r.container(pkg)
}

func (r *Registry) container(pkg PackageRef) *registryContainer {
	if c, ok := r.trie.Get(pkg); ok {
		return c
	}
	c := &registryContainer{
		id:   pkg,
		deps: make(map[string][]PackageConstraint),
	}
	r.trie.Insert(pkg, c)
	return c
}

// GetContainer implements ContainerProvider. Completion is invoked before
// the call returns; the registry has nothing to fetch.
func (r *Registry) GetContainer(pkg PackageRef, skipUpdate bool, completion func(Container, error)) {
	c, ok := r.trie.Get(pkg)
	if !ok {
		completion(nil, errors.Errorf("package %s is not in the registry", pkg))
		return
	}
	completion(c, nil)
}

// registryContainer is the Container a Registry hands out.
type registryContainer struct {
	id          PackageRef
	versions    []*semver.Version // descending
	deps        map[string][]PackageConstraint
	unversioned []PackageConstraint
}

func (c *registryContainer) Identifier() PackageRef {
	return c.id
}

func (c *registryContainer) Versions(filter func(*semver.Version) bool) []*semver.Version {
	var out []*semver.Version
	for _, v := range c.versions {
		if filter(v) {
			out = append(out, v)
		}
	}
	return out
}

func (c *registryContainer) GetDependencies(at *semver.Version) ([]PackageConstraint, error) {
	deps, ok := c.deps[at.String()]
	if !ok {
		return nil, errors.Errorf("%s has no version %s", c.id, at)
	}
	return deps, nil
}

func (c *registryContainer) GetUnversionedDependencies() ([]PackageConstraint, error) {
	return c.unversioned, nil
}

// registryFile is the YAML shape of a package universe:
//
//	root:
//	  name: app
//	  dependencies:
//	    a: ^1.0.0
//	packages:
//	  a:
//	    1.0.0:
//	      b: ^1.0.0
//	    1.1.0: {}
//	  b:
//	    1.0.0: {}
type registryFile struct {
	Root struct {
		Name         string            `yaml:"name"`
		Dependencies map[string]string `yaml:"dependencies"`
	} `yaml:"root"`
	Packages map[string]map[string]map[string]string `yaml:"packages"`
}

// LoadRegistry reads a package universe from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading registry %s", path)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a registry from YAML. Every malformed version and
// requirement in the file is reported, not just the first.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parsing registry")
	}
	if file.Root.Name == "" {
		return nil, errors.New("registry declares no root package")
	}

	r := NewRegistry()
	var merr error

	rootDeps, err := parseConstraints(file.Root.Dependencies)
	if err != nil {
		merr = multierr.Append(merr, errors.Wrap(err, "root dependencies"))
	}
	r.SetRoot(PackageRef(file.Root.Name), rootDeps)

	pkgs := make([]string, 0, len(file.Packages))
	for name := range file.Packages {
		pkgs = append(pkgs, name)
	}
	sort.Strings(pkgs)
	for _, name := range pkgs {
		versions := file.Packages[name]
		if len(versions) == 0 {
			r.AddPackage(PackageRef(name))
			continue
		}
		vkeys := make([]string, 0, len(versions))
		for version := range versions {
			vkeys = append(vkeys, version)
		}
		sort.Strings(vkeys)
		for _, version := range vkeys {
			rawDeps := versions[version]
			deps, err := parseConstraints(rawDeps)
			if err != nil {
				merr = multierr.Append(merr, errors.Wrapf(err, "package %s version %s", name, version))
				continue
			}
			if err := r.AddVersion(PackageRef(name), version, deps); err != nil {
				merr = multierr.Append(merr, err)
			}
		}
	}
	if merr != nil {
		return nil, merr
	}
	return r, nil
}

// parseConstraints reads a name→requirement map into a deterministic,
// name-sorted constraint list.
func parseConstraints(raw map[string]string) ([]PackageConstraint, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var merr error
	deps := make([]PackageConstraint, 0, len(names))
	for _, name := range names {
		req, err := ParseRequirement(raw[name])
		if err != nil {
			merr = multierr.Append(merr, errors.Wrapf(err, "dependency %s", name))
			continue
		}
		deps = append(deps, PackageConstraint{Package: PackageRef(name), Requirement: req})
	}
	return deps, merr
}
