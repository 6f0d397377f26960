package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrCircularDependency is returned when the registered constructors do
// not form a DAG.
var ErrCircularDependency = errors.New("runtime: circular dependency")

// Lifetime controls whether a constructor is invoked once (Singleton) or
// on every Get call (Transient).
type Lifetime int

const (
	Singleton Lifetime = iota
	Transient
)

// Constructor builds a service instance, resolving its own dependencies
// via c.Get inside the function body.
type Constructor func(ctx context.Context, c *Container) (any, error)

type registration struct {
	lifetime    Lifetime
	constructor Constructor
	dependsOn   []reflect.Type

	instance any
	built    bool
}

// Container is a typed registry keyed by reflect.Type, supporting
// singleton and transient lifetimes, topologically ordered initialization,
// and deterministic reverse-order shutdown.
type Container struct {
	regs     map[reflect.Type]*registration
	order    []reflect.Type // topological build order; Shutdown walks the shutdown hooks instead
	shutdown []func(context.Context) error
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		regs: make(map[reflect.Type]*registration),
	}
}

// Register associates the type of T with a constructor. dependsOn lists
// the types this constructor's Get calls will request; it drives the
// topological ordering used by InitAll and is independent of the
// lifetime.
func Register[T any](c *Container, lifetime Lifetime, dependsOn []reflect.Type, ctor Constructor) {
	var zero T
	t := reflect.TypeOf(&zero).Elem()

	c.regs[t] = &registration{
		lifetime:    lifetime,
		constructor: ctor,
		dependsOn:   dependsOn,
	}
}

// Get resolves an instance of T, invoking its constructor (and, for
// Singleton lifetime, caching the result) if not already built.
func Get[T any](ctx context.Context, c *Container) (T, error) {
	var zero T

	t := reflect.TypeOf(&zero).Elem()

	reg, ok := c.regs[t]
	if !ok {
		return zero, fmt.Errorf("runtime: no constructor registered for %s", t)
	}

	if reg.lifetime == Singleton && reg.built {
		v, ok := reg.instance.(T)
		if !ok {
			return zero, fmt.Errorf("runtime: constructed instance for %s has wrong type", t)
		}

		return v, nil
	}

	instance, err := reg.constructor(ctx, c)
	if err != nil {
		return zero, fmt.Errorf("runtime: constructing %s: %w", t, err)
	}

	v, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("runtime: constructor for %s returned wrong type", t)
	}

	if reg.lifetime == Singleton {
		reg.instance = instance
		reg.built = true
	}

	return v, nil
}

// RegisterShutdown appends a shutdown hook, run in reverse registration
// order by Shutdown. Typically called from within a Constructor after
// building a resource that needs an orderly close.
func (c *Container) RegisterShutdown(fn func(context.Context) error) {
	c.shutdown = append(c.shutdown, fn)
}

// InitAll builds every Singleton-lifetime registration in topological
// order (Kahn's algorithm over the dependsOn graph), so constructors
// never observe a not-yet-built dependency. Returns ErrCircularDependency
// if the graph is not a DAG.
func (c *Container) InitAll(ctx context.Context) error {
	order, err := c.topoOrder()
	if err != nil {
		return err
	}

	c.order = order

	for _, t := range order {
		reg := c.regs[t]
		if reg.lifetime != Singleton || reg.built {
			continue
		}

		instance, err := reg.constructor(ctx, c)
		if err != nil {
			return fmt.Errorf("runtime: initializing %s: %w", t, err)
		}

		reg.instance = instance
		reg.built = true
	}

	return nil
}

// topoOrder computes a Kahn's-algorithm topological order over the
// registered types' dependsOn edges.
func (c *Container) topoOrder() ([]reflect.Type, error) {
	indegree := make(map[reflect.Type]int, len(c.regs))
	dependents := make(map[reflect.Type][]reflect.Type, len(c.regs))

	for t := range c.regs {
		indegree[t] = 0
	}

	for t, reg := range c.regs {
		for _, dep := range reg.dependsOn {
			indegree[t]++
			dependents[dep] = append(dependents[dep], t)
		}
	}

	var queue []reflect.Type

	for t, deg := range indegree {
		if deg == 0 {
			queue = append(queue, t)
		}
	}

	var order []reflect.Type

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		order = append(order, t)

		for _, dep := range dependents[t] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(c.regs) {
		return nil, ErrCircularDependency
	}

	return order, nil
}

// Shutdown runs registered shutdown hooks in reverse order, collecting
// every error rather than stopping at the first so teardown always runs
// to completion.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	for i := len(c.shutdown) - 1; i >= 0; i-- {
		if err := c.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
