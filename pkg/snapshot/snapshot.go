package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hjrent/hjstore/pkg/recordstore"
)

// Snapshot maps logical keys to their stored values.
type Snapshot map[string]any

// Getter reads keys for Capture.
type Getter interface {
	Lookup(ctx context.Context, key string) recordstore.Result
}

// Setter writes keys for Apply.
type Setter interface {
	Set(ctx context.Context, key string, value any) error
}

// Keys returns the snapshot keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Capture reads every key into a snapshot. Keys with nothing stored are
// left out. Failed reads are collected and returned together with the
// keys that could be read.
func Capture(ctx context.Context, getter Getter, keys []string) (Snapshot, error) {
	snap := make(Snapshot, len(keys))

	var errs []error
	for _, key := range keys {
		res := getter.Lookup(ctx, key)
		switch res.Status {
		case recordstore.StatusFound:
			snap[key] = res.Value
		case recordstore.StatusFailed:
			errs = append(errs, fmt.Errorf("failed to capture %s: %w", key, res.Err))
		}
	}

	return snap, errors.Join(errs...)
}

// Apply writes every key of snap in sorted order. It keeps going after a
// failed key and returns all failures joined.
func Apply(ctx context.Context, setter Setter, snap Snapshot) error {
	var errs []error
	for _, key := range snap.Keys() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := setter.Set(ctx, key, snap[key]); err != nil {
			errs = append(errs, fmt.Errorf("failed to import %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// ReadFile loads a snapshot from a JSON file.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data)
}

// Decode parses a snapshot document. The document must be a JSON object.
func Decode(data []byte) (Snapshot, error) {
	v, err := recordstore.DecodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse snapshot: expected a JSON object, got %T", v)
	}
	return Snapshot(obj), nil
}

// WriteFile saves snap as indented JSON, replacing path atomically.
func WriteFile(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
