package pubgrub

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// slowProvider wraps a registry and answers every fetch on a goroutine
// after a short delay, counting the fetches it serves.
type slowProvider struct {
	registry *Registry
	delay    time.Duration
	fetches  int64
}

func (p *slowProvider) GetContainer(pkg PackageRef, skipUpdate bool, completion func(Container, error)) {
	atomic.AddInt64(&p.fetches, 1)
	go func() {
		time.Sleep(p.delay)
		p.registry.GetContainer(pkg, skipUpdate, completion)
	}()
}

func testUniverseRegistry() *Registry {
	return mkregistry(
		map[string]string{"a": "^1.0.0"},
		fixtureUniverse{
			"a": {"1.0.0": nil},
			"b": {"1.0.0": nil},
			"c": {"1.0.0": nil},
		},
	)
}

func TestContainerCacheSynchronousFetch(t *testing.T) {
	cache := newContainerCache(testUniverseRegistry(), false)
	ct, err := cache.get("a")
	if err != nil {
		t.Fatalf("get failed: %s", err)
	}
	if ct.Identifier() != "a" {
		t.Errorf("fetched container for %s, want a", ct.Identifier())
	}
}

func TestContainerCacheCachesResults(t *testing.T) {
	p := &slowProvider{registry: testUniverseRegistry()}
	cache := newContainerCache(p, false)
	if _, err := cache.get("a"); err != nil {
		t.Fatalf("get failed: %s", err)
	}
	if _, err := cache.get("a"); err != nil {
		t.Fatalf("second get failed: %s", err)
	}
	if n := atomic.LoadInt64(&p.fetches); n != 1 {
		t.Errorf("provider fetched %d times, want 1", n)
	}
}

func TestContainerCachePrefetchIsAwaited(t *testing.T) {
	p := &slowProvider{registry: testUniverseRegistry(), delay: 20 * time.Millisecond}
	cache := newContainerCache(p, false)

	cache.prefetch([]PackageRef{"a", "b", "c"})
	for _, pkg := range []PackageRef{"a", "b", "c"} {
		ct, err := cache.get(pkg)
		if err != nil {
			t.Fatalf("get %s failed: %s", pkg, err)
		}
		if ct.Identifier() != pkg {
			t.Errorf("got container for %s, want %s", ct.Identifier(), pkg)
		}
	}
	if n := atomic.LoadInt64(&p.fetches); n != 3 {
		t.Errorf("provider fetched %d times, want 3 (no duplicate fetches past the prefetch)", n)
	}
}

func TestContainerCacheConcurrentGets(t *testing.T) {
	p := &slowProvider{registry: testUniverseRegistry(), delay: 10 * time.Millisecond}
	cache := newContainerCache(p, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ct, err := cache.get("b")
			if err != nil {
				t.Errorf("get failed: %s", err)
				return
			}
			if ct.Identifier() != "b" {
				t.Errorf("got container for %s, want b", ct.Identifier())
			}
		}()
	}
	wg.Wait()
}

type failingProvider struct{}

func (failingProvider) GetContainer(pkg PackageRef, skipUpdate bool, completion func(Container, error)) {
	completion(nil, errors.New("upstream went away"))
}

func TestContainerCachePropagatesErrors(t *testing.T) {
	cache := newContainerCache(failingProvider{}, false)
	if _, err := cache.get("a"); err == nil {
		t.Fatal("get against a failing provider succeeded")
	} else if !strings.Contains(err.Error(), "fetching container for a") {
		t.Errorf("error lacks package context: %s", err)
	}
	// The failure is cached like a result.
	if _, err := cache.get("a"); err == nil {
		t.Fatal("second get did not observe the cached failure")
	}
}

// The solve result must not depend on whether containers were prefetched or
// fetched on demand, nor on completion order.
func TestSolveIndependentOfPrefetchOrder(t *testing.T) {
	fixture := func() *Registry {
		return mkregistry(
			map[string]string{"a": "^1.0.0", "b": "^1.0.0"},
			fixtureUniverse{
				"a": {"1.1.0": {"c": "^2.0.0"}, "1.0.0": {"c": "^1.0.0"}},
				"b": {"1.0.0": {"c": "^1.0.0"}},
				"c": {"2.0.0": nil, "1.0.0": nil},
			},
		)
	}

	plain, err := mksolver(fixture()).Solve("root", nil)
	if err != nil {
		t.Fatalf("solve failed: %s", err)
	}

	pins := []PackageConstraint{
		{Package: "c", Requirement: VersionSetRequirement(AnyVersions())},
		{Package: "b", Requirement: VersionSetRequirement(AnyVersions())},
		{Package: "a", Requirement: VersionSetRequirement(AnyVersions())},
	}
	slow := NewSolver(&slowProvider{registry: fixture(), delay: 5 * time.Millisecond}, nil, nil)
	prefetched, err := slow.Solve("root", pins)
	if err != nil {
		t.Fatalf("prefetched solve failed: %s", err)
	}

	if len(plain) != len(prefetched) {
		t.Fatalf("binding counts differ: %d vs %d", len(plain), len(prefetched))
	}
	for i := range plain {
		if plain[i].String() != prefetched[i].String() {
			t.Errorf("binding %d differs: %s vs %s", i, plain[i], prefetched[i])
		}
	}
}

func TestRegistryContainerVersionsDescending(t *testing.T) {
	r := NewRegistry()
	for _, v := range []string{"1.0.0", "2.1.0", "1.5.0", "2.0.0"} {
		if err := r.AddVersion("a", v, nil); err != nil {
			t.Fatalf("AddVersion: %s", err)
		}
	}
	var ct Container
	r.GetContainer("a", false, func(c Container, err error) {
		if err != nil {
			t.Fatalf("GetContainer: %s", err)
		}
		ct = c
	})

	all := ct.Versions(func(*semver.Version) bool { return true })
	want := []string{"2.1.0", "2.0.0", "1.5.0", "1.0.0"}
	if len(all) != len(want) {
		t.Fatalf("got %d versions, want %d", len(all), len(want))
	}
	for i, v := range all {
		if v.String() != want[i] {
			t.Errorf("version %d = %s, want %s", i, v, want[i])
		}
	}

	filtered := ct.Versions(mkrng("1.0.0", "2.0.0").Contains)
	if len(filtered) != 2 || filtered[0].String() != "1.5.0" || filtered[1].String() != "1.0.0" {
		t.Errorf("filtered versions = %v, want [1.5.0 1.0.0]", filtered)
	}
}
