// Package snapshot moves record store contents to and from JSON files.
//
// A snapshot is a JSON object keyed by logical key, holding the same values
// Get returns: arrays of records for collections and plain values for
// settings. Capture reads keys from a store, Apply writes them back, and
// Watcher re-applies a file each time it changes.
package snapshot
