// Package typeid generates and checks the prefixed, sortable ids used for
// users, projects, snapshots, operations, scene objects and assets.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixProject  = "proj"
	PrefixSnapshot = "snap"
	PrefixOp       = "op"
	PrefixObject   = "obj"
	PrefixAsset    = "asset"
)

var (
	ErrMalformed      = errors.New("malformed typeid")
	ErrPrefixMismatch = errors.New("typeid prefix mismatch")
)

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewProjectID() string  { return New(PrefixProject) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewOpID() string       { return New(PrefixOp) }
func NewObjectID() string   { return New(PrefixObject) }
func NewAssetID() string    { return New(PrefixAsset) }

// Prefix returns the prefix of a well-formed id.
func Prefix(id string) (string, error) {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrMalformed, id, err)
	}
	return parsed.Prefix(), nil
}

// Validate checks that id is well formed and carries expectedPrefix.
func Validate(id, expectedPrefix string) error {
	prefix, err := Prefix(id)
	if err != nil {
		return err
	}
	if prefix != expectedPrefix {
		return fmt.Errorf("%w: want %q, got %q in %q", ErrPrefixMismatch, expectedPrefix, prefix, id)
	}
	return nil
}
