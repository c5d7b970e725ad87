package pubgrub

import (
	"sync"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// A ContainerProvider hands out package containers. Implementations may hit
// the network or disk; the solver never calls one directly, always through
// the containerCache below.
type ContainerProvider interface {
	// GetContainer fetches the container for the given package. The call is
	// asynchronous: completion is invoked exactly once, with either the
	// container or an error.
	GetContainer(pkg PackageRef, skipUpdate bool, completion func(Container, error))
}

// A Container exposes one package's available versions and the dependencies
// declared at each.
type Container interface {
	// Identifier returns the package this container describes.
	Identifier() PackageRef
	// Versions returns the versions admitted by the filter, in descending
	// order.
	Versions(filter func(*semver.Version) bool) []*semver.Version
	// GetDependencies returns the constraints the package declares at the
	// given version.
	GetDependencies(at *semver.Version) ([]PackageConstraint, error)
	// GetUnversionedDependencies returns the constraints declared outside
	// any version, which only the root package carries.
	GetUnversionedDependencies() ([]PackageConstraint, error)
}

// prefetchConcurrency bounds the number of provider fetches a Prefetch call
// keeps in flight at once.
const prefetchConcurrency = 4

// containerCache serializes access to fetched containers. A request for a
// package returns the cached result, waits out an in-flight prefetch, or
// falls back to a synchronous fetch. Results are only ever read under the
// lock, so the solver's behaviour does not depend on prefetch completion
// order.
type containerCache struct {
	provider   ContainerProvider
	skipUpdate bool

	mu         sync.Mutex
	cond       *sync.Cond
	containers map[PackageRef]Container
	errs       map[PackageRef]error
	inflight   map[PackageRef]bool
}

func newContainerCache(provider ContainerProvider, skipUpdate bool) *containerCache {
	c := &containerCache{
		provider:   provider,
		skipUpdate: skipUpdate,
		containers: make(map[PackageRef]Container),
		errs:       make(map[PackageRef]error),
		inflight:   make(map[PackageRef]bool),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// prefetch begins background fetches for any of the given packages that are
// neither cached nor already in flight. It never blocks on the fetches
// themselves; this is purely a hint.
func (c *containerCache) prefetch(pkgs []PackageRef) {
	c.mu.Lock()
	var todo []PackageRef
	for _, pkg := range pkgs {
		if _, ok := c.containers[pkg]; ok {
			continue
		}
		if _, ok := c.errs[pkg]; ok {
			continue
		}
		if c.inflight[pkg] {
			continue
		}
		c.inflight[pkg] = true
		todo = append(todo, pkg)
	}
	c.mu.Unlock()

	if len(todo) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(prefetchConcurrency)
	go func() {
		for _, pkg := range todo {
			pkg := pkg
			g.Go(func() error {
				c.fetch(pkg)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// get returns the container for pkg, blocking until it is available.
func (c *containerCache) get(pkg PackageRef) (Container, error) {
	c.mu.Lock()
	for {
		if ct, ok := c.containers[pkg]; ok {
			c.mu.Unlock()
			return ct, nil
		}
		if err, ok := c.errs[pkg]; ok {
			c.mu.Unlock()
			return nil, errors.Wrapf(err, "fetching container for %s", pkg)
		}
		if !c.inflight[pkg] {
			break
		}
		c.cond.Wait()
	}
	c.inflight[pkg] = true
	c.mu.Unlock()

	c.fetch(pkg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.errs[pkg]; ok {
		return nil, errors.Wrapf(err, "fetching container for %s", pkg)
	}
	return c.containers[pkg], nil
}

// fetch performs one provider round trip and publishes the result. The
// caller must have marked pkg in flight.
func (c *containerCache) fetch(pkg PackageRef) {
	done := make(chan struct{})
	c.provider.GetContainer(pkg, c.skipUpdate, func(ct Container, err error) {
		c.mu.Lock()
		if err != nil {
			c.errs[pkg] = err
		} else {
			c.containers[pkg] = ct
		}
		delete(c.inflight, pkg)
		c.cond.Broadcast()
		c.mu.Unlock()
		close(done)
	})
	<-done
}
