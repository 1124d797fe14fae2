package runtime

// --------------------------------------------------------------------------
// Fragment
// --------------------------------------------------------------------------

// Fragment is the unit of rendered output: a piece of web content plus the
// client-side initialization needed to activate it. Fragments compose: a
// parent's fragment embeds its children's content and accumulates their
// resources.
type Fragment struct {
	Content string
	// JSInit names the client-side initializer for this fragment, if any.
	JSInit string
	// JSONInitArgs are passed to the initializer.
	JSONInitArgs map[string]interface{}
	// Resources are opaque references (URLs, inline snippets) the host page
	// must include. Order is preserved; duplicates are tolerated here and
	// deduplicated by the host.
	Resources []string
}

// NewFragment creates a fragment holding content.
func NewFragment(content string) *Fragment {
	return &Fragment{Content: content}
}

// AddResource appends a resource reference.
func (f *Fragment) AddResource(res string) {
	f.Resources = append(f.Resources, res)
}

// AddFragmentResources accumulates the resources of embedded fragments.
func (f *Fragment) AddFragmentResources(others ...*Fragment) {
	for _, o := range others {
		f.Resources = append(f.Resources, o.Resources...)
	}
}
