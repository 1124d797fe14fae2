// Package cmd implements the command-line interface for coursekit. It
// provides a hierarchical command structure for operating on a coursekit
// deployment's data stores.
//
// The package is organized into several subpackages:
//
//   - notify: Commands for notification maintenance (purge, count, namespaces, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See coursekit -help for a list of all commands.
package cmd
