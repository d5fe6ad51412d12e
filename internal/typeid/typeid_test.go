package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasPrefix(t *testing.T) {
	for prefix, gen := range map[string]func() string{
		PrefixUser:     NewUserID,
		PrefixProject:  NewProjectID,
		PrefixSnapshot: NewSnapshotID,
		PrefixOp:       NewOpID,
		PrefixObject:   NewObjectID,
		PrefixAsset:    NewAssetID,
	} {
		id := gen()
		assert.True(t, strings.HasPrefix(id, prefix+"_"), id)
		require.NoError(t, Validate(id, prefix))
	}
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate("proj_playground", PrefixProject), ErrMalformed)
	assert.ErrorIs(t, Validate("", PrefixProject), ErrMalformed)
	assert.ErrorIs(t, Validate(NewObjectID(), PrefixProject), ErrPrefixMismatch)
	assert.NotEqual(t, NewObjectID(), NewObjectID())
}

func TestPrefix(t *testing.T) {
	p, err := Prefix(NewAssetID())
	require.NoError(t, err)
	assert.Equal(t, PrefixAsset, p)

	_, err = Prefix("not an id")
	assert.ErrorIs(t, err, ErrMalformed)
}
