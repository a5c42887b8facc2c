package resolver

import (
	"fmt"
	"time"

	"github.com/antigravity-dev/fulfillment/internal/timeline"
)

// Container holds a fixed set of named Wrappers — some deferred behind
// a Resolver, some plain values — addressed by name, with access
// errors routed to its own Timeline instead of propagating.
type Container struct {
	context  string
	Timeout  time.Duration
	Timeline *timeline.Timeline
	items    map[string]*Wrapper
}

// NewContainer builds an empty Container. context names this
// container in error/warning messages; an empty context becomes "-".
func NewContainer(context string, timeout time.Duration) *Container {
	if context == "" {
		context = "-"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Container{
		context:  context,
		Timeout:  timeout,
		Timeline: timeline.New(),
		items:    map[string]*Wrapper{},
	}
}

func (c *Container) buildContext(name string) string {
	return fmt.Sprintf("%s/%s", c.context, name)
}

// Add declares one named entry. If value contains code and
// skipResolver is false, the entry is wrapped in a Resolver that
// defers evaluation; otherwise transform (if any) runs immediately,
// and a nil transformed/plain value is simply not stored (matching a
// ResolverObjectParameter property that parsed away to nothing).
func (c *Container) Add(key string, value any, transform Transform, skipResolver bool) error {
	if ContainsCode(value) && !skipResolver {
		w, err := NewWrapper(New(value, c.Timeout), transform)
		if err != nil {
			return err
		}
		c.items[key] = w
		return nil
	}
	if transform != nil {
		transformed, err := transform(value)
		if err != nil {
			return err
		}
		if transformed != nil {
			w, err := NewWrapper(transformed, nil)
			if err != nil {
				return err
			}
			c.items[key] = w
		}
		return nil
	}
	if value != nil {
		w, err := NewWrapper(value, nil)
		if err != nil {
			return err
		}
		c.items[key] = w
	}
	return nil
}

// Contains reports whether name was declared and resolved to a
// non-nil wrapper.
func (c *Container) Contains(name string) bool {
	_, ok := c.items[name]
	return ok
}

// Get evaluates and returns the named entry, logging any access error
// onto the container's own Timeline instead of returning it — missing
// names log a Warning, failed resolution logs an Error.
func (c *Container) Get(name string) any {
	w, ok := c.items[name]
	if !ok {
		c.Timeline.Warning(fmt.Sprintf("Resolver container (%s) didn't have '%s'", c.context, name))
		return nil
	}
	v, err := w.Get(c.buildContext(name))
	if err != nil {
		c.Timeline.Error(fmt.Sprintf("Resolver Error! %s", err.Error()))
		return nil
	}
	return v
}

func (c *Container) resolvers() map[string]*Resolver {
	out := map[string]*Resolver{}
	for name, w := range c.items {
		if w.resolver != nil {
			out[name] = w.resolver
		}
	}
	return out
}

// Evaluate forces every deferred entry to resolve, recording any
// failures on the Timeline.
func (c *Container) Evaluate() {
	for name, w := range c.items {
		if _, err := w.Get(c.buildContext(name + "(while evaluating)")); err != nil {
			c.Timeline.Error(fmt.Sprintf("Resolver Error! %s", err.Error()))
		}
	}
}

// AllResolved reports whether every deferred entry has resolved.
func (c *Container) AllResolved() bool {
	return len(c.Unresolved()) == 0
}

// Unresolved lists the names of deferred entries not yet resolved.
func (c *Container) Unresolved() []string {
	var out []string
	for name, r := range c.resolvers() {
		if !r.IsResolved() {
			out = append(out, name)
		}
	}
	return out
}

// Impossible lists the names of deferred entries that can never
// resolve.
func (c *Container) Impossible() []string {
	var out []string
	for name, r := range c.resolvers() {
		if !r.IsResolvable() {
			out = append(out, name)
		}
	}
	return out
}

// ToJSON renders every entry's diagnostic view.
func (c *Container) ToJSON(detailed bool) map[string]any {
	out := make(map[string]any, len(c.items))
	for name, w := range c.items {
		out[name] = w.ToJSON(detailed)
	}
	return out
}
