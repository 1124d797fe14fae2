package runtime

// --------------------------------------------------------------------------
// Aside
// --------------------------------------------------------------------------

// Aside is a sidecar instance decorating one primary block. It is a full
// block (own class, own scoped fields) whose ids are derived from the
// decorated block's ids plus the aside type, so rendering the same block
// twice rediscovers the same aside storage.
type Aside struct {
	*Block
	decorates *Block
}

// Decorates returns the block this aside decorates.
func (a *Aside) Decorates() *Block { return a.decorates }

// AsideType returns the aside's type name.
func (a *Aside) AsideType() string { return a.Class().Name() }

// Asides returns the aside instances applicable to a block: one per loaded
// aside class whose ShouldApplyToBlock accepts the block. Runtimes narrow
// the set further per operation (e.g. rendering only considers asides that
// declare the active view).
func (r *Runtime) Asides(b *Block) ([]*Aside, error) {
	var out []*Aside
	for _, class := range r.asideRegistry.Classes() {
		if !class.ShouldApplyToBlock(b) {
			continue
		}
		aside, err := r.constructAside(class, b)
		if err != nil {
			return nil, err
		}
		out = append(out, aside)
	}
	return out, nil
}

// constructAside builds the aside instance for one (class, block) pair.
func (r *Runtime) constructAside(class *Class, b *Block) (*Aside, error) {
	sids := b.ScopeIds()
	asideDefID, asideUsageID, err := r.idGenerator.CreateAside(sids.DefID, sids.UsageID, class.Name())
	if err != nil {
		return nil, err
	}
	asideSids := sids
	asideSids.BlockType = class.Name()
	asideSids.DefID = asideDefID
	asideSids.UsageID = asideUsageID

	mixed := r.mixologist.Mix(class)
	return &Aside{
		Block:     newBlock(mixed, r, r.fieldData, asideSids),
		decorates: b,
	}, nil
}
