package runtime

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IDReader resolves the relationships between usage ids, definition ids and
// block types, including the derived aside ids.
type IDReader interface {
	// GetDefinitionID returns the definition a usage was created from, or
	// fails with ErrNoSuchUsage.
	GetDefinitionID(usageID string) (string, error)
	// GetBlockType returns the block type of a definition, or fails with
	// ErrNoSuchDefinition.
	GetBlockType(defID string) (string, error)
	// GetUsageIDFromAside recovers the decorated usage from an aside usage id.
	GetUsageIDFromAside(asideUsageID string) (string, error)
	// GetDefinitionIDFromAside recovers the decorated definition from an
	// aside definition id.
	GetDefinitionIDFromAside(asideDefID string) (string, error)
	// GetAsideTypeFromUsage returns the aside type encoded in an aside usage id.
	GetAsideTypeFromUsage(asideUsageID string) (string, error)
	// GetAsideTypeFromDefinition returns the aside type encoded in an aside
	// definition id.
	GetAsideTypeFromDefinition(asideDefID string) (string, error)
}

// IDGenerator creates new ids. Aside id creation must be a pure function of
// (defID, usageID, asideType) so that aside re-discovery is stable within a
// process.
type IDGenerator interface {
	// CreateDefinition mints a definition id for a block type. The slug is
	// advisory and only influences readability of the id.
	CreateDefinition(blockType, slug string) (string, error)
	// CreateUsage mints a usage id for a definition.
	CreateUsage(defID string) (string, error)
	// CreateAside derives the aside ids for a decorated (definition, usage)
	// pair.
	CreateAside(defID, usageID, asideType string) (asideDefID, asideUsageID string, err error)
}

// --------------------------------------------------------------------------
// Aside ID Derivation
// --------------------------------------------------------------------------

// Aside ids embed the decorated id and the aside type behind a fixed marker.
// The derivation is pure, so any id manager produces identical aside ids for
// identical inputs.
const (
	asideUsageMarker = "::aside-usage::"
	asideDefMarker   = "::aside-def::"
)

func deriveAsideUsageID(usageID, asideType string) string {
	return usageID + asideUsageMarker + asideType
}

func deriveAsideDefID(defID, asideType string) string {
	return defID + asideDefMarker + asideType
}

func splitAsideID(id, marker string) (underlying, asideType string, ok bool) {
	idx := strings.LastIndex(id, marker)
	if idx < 0 {
		return "", "", false
	}
	return id[:idx], id[idx+len(marker):], true
}

// --------------------------------------------------------------------------
// In-Memory ID Manager
// --------------------------------------------------------------------------

// MemoryIDManager implements IDReader and IDGenerator with process-local
// maps. It is the default id manager and the reference implementation for
// tests.
type MemoryIDManager struct {
	mu          sync.RWMutex
	usageToDef  map[string]string
	defToType   map[string]string
	usageSerial int
}

// NewMemoryIDManager creates an empty id manager.
func NewMemoryIDManager() *MemoryIDManager {
	return &MemoryIDManager{
		usageToDef: map[string]string{},
		defToType:  map[string]string{},
	}
}

// --------------------------------------------------------------------------
// IDGenerator Methods
// --------------------------------------------------------------------------

func (m *MemoryIDManager) CreateDefinition(blockType, slug string) (string, error) {
	suffix := uuid.NewString()[:8]
	var defID string
	if slug != "" {
		defID = fmt.Sprintf("def.%s.%s.%s", blockType, slug, suffix)
	} else {
		defID = fmt.Sprintf("def.%s.%s", blockType, suffix)
	}
	m.mu.Lock()
	m.defToType[defID] = blockType
	m.mu.Unlock()
	return defID, nil
}

func (m *MemoryIDManager) CreateUsage(defID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defToType[defID]; !ok {
		return "", errNoSuchDefinition(defID)
	}
	m.usageSerial++
	usageID := fmt.Sprintf("usage.%d", m.usageSerial)
	m.usageToDef[usageID] = defID
	return usageID, nil
}

func (m *MemoryIDManager) CreateAside(defID, usageID, asideType string) (string, string, error) {
	return deriveAsideDefID(defID, asideType), deriveAsideUsageID(usageID, asideType), nil
}

// --------------------------------------------------------------------------
// IDReader Methods
// --------------------------------------------------------------------------

func (m *MemoryIDManager) GetDefinitionID(usageID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if defID, ok := m.usageToDef[usageID]; ok {
		return defID, nil
	}
	return "", errNoSuchUsage(usageID)
}

func (m *MemoryIDManager) GetBlockType(defID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if blockType, ok := m.defToType[defID]; ok {
		return blockType, nil
	}
	return "", errNoSuchDefinition(defID)
}

func (m *MemoryIDManager) GetUsageIDFromAside(asideUsageID string) (string, error) {
	underlying, _, ok := splitAsideID(asideUsageID, asideUsageMarker)
	if !ok {
		return "", errNoSuchUsage(asideUsageID)
	}
	return underlying, nil
}

func (m *MemoryIDManager) GetDefinitionIDFromAside(asideDefID string) (string, error) {
	underlying, _, ok := splitAsideID(asideDefID, asideDefMarker)
	if !ok {
		return "", errNoSuchDefinition(asideDefID)
	}
	return underlying, nil
}

func (m *MemoryIDManager) GetAsideTypeFromUsage(asideUsageID string) (string, error) {
	_, asideType, ok := splitAsideID(asideUsageID, asideUsageMarker)
	if !ok {
		return "", errNoSuchUsage(asideUsageID)
	}
	return asideType, nil
}

func (m *MemoryIDManager) GetAsideTypeFromDefinition(asideDefID string) (string, error) {
	_, asideType, ok := splitAsideID(asideDefID, asideDefMarker)
	if !ok {
		return "", errNoSuchDefinition(asideDefID)
	}
	return asideType, nil
}
