package resolver

import "fmt"

// Transform normalizes a raw or resolved value, typically a schema
// parameter's Parse method bound to its declaration context.
type Transform func(v any) (any, error)

// Wrapper holds either a plain value or a deferred Resolver, applying
// an optional Transform once the underlying value is available.
type Wrapper struct {
	resolver  *Resolver
	value     any
	transform Transform
}

// NewWrapper wraps value, treating it as deferred if it is a
// *Resolver. A non-deferred value has transform applied immediately.
func NewWrapper(value any, transform Transform) (*Wrapper, error) {
	w := &Wrapper{transform: transform}
	if r, ok := value.(*Resolver); ok {
		w.resolver = r
		return w, nil
	}
	w.value = value
	if err := w.applyTransform(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wrapper) applyTransform() error {
	if w.transform == nil {
		return nil
	}
	v, err := w.transform(w.value)
	if err != nil {
		return err
	}
	w.value = v
	return nil
}

// Get returns the wrapper's value, evaluating its Resolver on first
// access. context names the access point for error messages.
func (w *Wrapper) Get(context string) (any, error) {
	if w.resolver == nil {
		return w.value, nil
	}
	if !w.resolver.IsResolved() {
		w.value = w.resolver.Evaluate()
		if !w.resolver.IsResolvable() {
			return nil, fmt.Errorf("%s is not resolvable!", context)
		}
		if !w.resolver.IsResolved() {
			return nil, fmt.Errorf("%s is NOT resolved yet!", context)
		}
		if err := w.applyTransform(); err != nil {
			return nil, err
		}
	}
	return w.value, nil
}

// ToJSON mirrors the resolver's diagnostic rendering, falling back to
// the plain value when there is no underlying Resolver.
func (w *Wrapper) ToJSON(detailed bool) any {
	if detailed && w.resolver != nil {
		return w.resolver.ToJSON()
	}
	if w.resolver != nil && !w.resolver.IsResolved() {
		_, _ = w.Get("to_json")
	}
	return w.value
}
