package runtime

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Mixologist
// --------------------------------------------------------------------------

// Mixologist composes classes with a fixed tuple of mixins. Mixing is
// deterministic and cached: identical (unmixed base, mixin tuple) inputs
// return the identical *Class object, and concurrent calls construct the
// class only once.
type Mixologist struct {
	mixins []*Mixin
	cache  *xsync.MapOf[mixKey, *Class]
}

// mixKey identifies one composition result. The tuple signature is the
// ordered list of mixin names; mixin names are unique within a runtime.
type mixKey struct {
	base *Class
	sig  string
}

// NewMixologist creates a Mixologist applying the given mixins, in order.
func NewMixologist(mixins ...*Mixin) *Mixologist {
	return &Mixologist{
		mixins: mixins,
		cache:  xsync.NewMapOf[mixKey, *Class](),
	}
}

// Mixins returns the configured mixin tuple.
func (m *Mixologist) Mixins() []*Mixin { return m.mixins }

// Mix returns a class deriving base with the configured mixins applied.
// Mixing an already-mixed class preserves its existing mixins and appends
// only the new, non-duplicate ones, in order.
func (m *Mixologist) Mix(base *Class) *Class {
	unmixed := base.Unmixed()

	// Merge the existing tuple with ours, dropping duplicates by name.
	tuple := append([]*Mixin{}, base.Mixins()...)
	seen := map[string]bool{}
	for _, mx := range tuple {
		seen[mx.name] = true
	}
	for _, mx := range m.mixins {
		if !seen[mx.name] {
			tuple = append(tuple, mx)
			seen[mx.name] = true
		}
	}

	if len(tuple) == 0 {
		return base
	}

	key := mixKey{base: unmixed, sig: tupleSignature(tuple)}
	mixed, _ := m.cache.LoadOrCompute(key, func() *Class {
		out := unmixed.clone()
		for _, mx := range tuple {
			mx.applyTo(out)
		}
		out.mixins = tuple
		out.unmixed = unmixed
		return out
	})
	return mixed
}

func tupleSignature(tuple []*Mixin) string {
	names := make([]string, len(tuple))
	for i, mx := range tuple {
		names[i] = mx.name
	}
	return strings.Join(names, "\x00")
}
