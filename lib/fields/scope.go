package fields

import "fmt"

// --------------------------------------------------------------------------
// ScopeIds
// --------------------------------------------------------------------------

// ScopeIds identifies a single block instance for storage purposes. It is an
// immutable value: deriving a variant (e.g. for another user) is done with the
// WithUserID helper rather than mutation.
type ScopeIds struct {
	UserID    string
	BlockType string
	DefID     string
	UsageID   string
}

// NewScopeIds creates a ScopeIds value.
func NewScopeIds(userID, blockType, defID, usageID string) ScopeIds {
	return ScopeIds{UserID: userID, BlockType: blockType, DefID: defID, UsageID: usageID}
}

// WithUserID returns a copy bound to a different user.
func (s ScopeIds) WithUserID(userID string) ScopeIds {
	s.UserID = userID
	return s
}

// WithUsageID returns a copy bound to a different usage.
func (s ScopeIds) WithUsageID(usageID string) ScopeIds {
	s.UsageID = usageID
	return s
}

func (s ScopeIds) String() string {
	return fmt.Sprintf("ScopeIds(user=%s, type=%s, def=%s, usage=%s)", s.UserID, s.BlockType, s.DefID, s.UsageID)
}

// --------------------------------------------------------------------------
// Scope Axes
// --------------------------------------------------------------------------

// UserScope is the user axis of a storage scope.
type UserScope int

const (
	// UserScopeNone marks data that is the same for all users (content and
	// settings). No user id enters the storage key.
	UserScopeNone UserScope = iota
	// UserScopeOne marks per-user data. The storage key carries the user id.
	UserScopeOne
	// UserScopeAll marks data aggregated across all users. Like UserScopeNone
	// the storage key carries no user id, but the semantics differ: the data
	// is derived from many users rather than authored once.
	UserScopeAll
)

func (u UserScope) String() string {
	switch u {
	case UserScopeNone:
		return "none"
	case UserScopeOne:
		return "one"
	case UserScopeAll:
		return "all"
	default:
		return "unknown"
	}
}

// BlockScope is the block axis of a storage scope.
type BlockScope int

const (
	// BlockScopeUsage partitions data per usage (per placement of a block).
	BlockScopeUsage BlockScope = iota
	// BlockScopeDefinition partitions data per definition, shared by all
	// usages instantiated from it.
	BlockScopeDefinition
	// BlockScopeType partitions data per block type.
	BlockScopeType
	// BlockScopeAll stores a single value independent of any block.
	BlockScopeAll
)

func (b BlockScope) String() string {
	switch b {
	case BlockScopeUsage:
		return "usage"
	case BlockScopeDefinition:
		return "definition"
	case BlockScopeType:
		return "type"
	case BlockScopeAll:
		return "all"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Scope
// --------------------------------------------------------------------------

// Scope is a closed combination of the two axes plus the two special scopes
// (Children, Parent) used for the block tree. Scope values are comparable;
// the name disambiguates scopes that share axes (e.g. Settings vs Children).
type Scope struct {
	User  UserScope
	Block BlockScope
	name  string
}

// NewScope creates a custom scope. The predefined scopes below cover the
// standard product semantics and should be preferred.
func NewScope(user UserScope, block BlockScope, name string) Scope {
	return Scope{User: user, Block: block, name: name}
}

// Predefined scopes.
var (
	ScopeContent          = Scope{UserScopeNone, BlockScopeDefinition, "content"}
	ScopeSettings         = Scope{UserScopeNone, BlockScopeUsage, "settings"}
	ScopeUserState        = Scope{UserScopeOne, BlockScopeUsage, "user_state"}
	ScopeUserStateSummary = Scope{UserScopeAll, BlockScopeUsage, "user_state_summary"}
	ScopePreferences      = Scope{UserScopeOne, BlockScopeType, "preferences"}
	ScopeUserInfo         = Scope{UserScopeOne, BlockScopeAll, "user_info"}

	// ScopeChildren and ScopeParent are reserved for the structural fields of
	// a block. They store per usage with no user axis.
	ScopeChildren = Scope{UserScopeNone, BlockScopeUsage, "children"}
	ScopeParent   = Scope{UserScopeNone, BlockScopeUsage, "parent"}
)

// IsStructural reports whether the scope is one of the reserved tree scopes.
func (s Scope) IsStructural() bool {
	return s == ScopeChildren || s == ScopeParent
}

func (s Scope) String() string {
	if s.name != "" {
		return s.name
	}
	return fmt.Sprintf("scope(%s/%s)", s.User, s.Block)
}
