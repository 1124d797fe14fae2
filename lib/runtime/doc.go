// Package runtime implements the pluggable content runtime: the contract by
// which third-party content blocks plug into a host application. It covers
// block class composition, instance construction, scoped field access with
// dirty tracking, rendering with aside decoration, handler dispatch, XML
// import/export and a services registry.
//
// The package focuses on:
//   - A class/blueprint model (Class, Mixin) composed by the Mixologist
//   - Block instances whose field values live behind a pluggable field data
//     adapter over a kvstore.Store
//   - A rendering pipeline that wraps block fragments and decorates them with
//     applicable asides
//   - Deterministic id management for usages, definitions and asides
//
// Key Components:
//
//   - Class: The blueprint for a block type. Go has no dynamic multiple
//     inheritance, so a class carries an ordered field table, named views and
//     handlers, fallbacks, service declarations and XML hooks explicitly.
//     Field resolution walks the composed table in declaration order (base
//     first, mixins after), which is the MRO analogue.
//
//   - Mixologist: Composes a base class with a fixed tuple of mixins into a
//     new class, preserving the unmixed base. Results are cached by
//     (unmixed base, mixin tuple); concurrent calls with the same key return
//     the identical class object and only construct one.
//
//   - Block: One instance of a class bound to a Runtime, a FieldData adapter
//     and a ScopeIds tuple. Blocks cache field values, track dirty fields
//     against a serialized-at-read snapshot, and persist only fields whose
//     serialized form actually changed.
//
//   - Runtime: Construction (ConstructBlock, GetBlock), the render pipeline
//     (Render, RenderChild), handler dispatch (Handle), the services registry
//     (Service) and XML import/export (ParseXMLString, ExportToXML).
//
//   - Asides: Sidecar blocks that decorate a primary block's views and XML
//     without being part of its definition tree. Aside ids are a pure
//     function of the decorated block's ids plus the aside type, so
//     re-discovery never duplicates asides.
//
// The runtime is single-threaded per request: a render or handler invocation
// is a synchronous call tree. The Mixologist cache is the only shared mutable
// structure and is safe for concurrent use.
package runtime
