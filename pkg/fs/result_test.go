package fs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftfs/driftfs/pkg/fs"
)

func TestBoolOrErrorZeroValueIsError(t *testing.T) {
	// A forgotten assignment must read as failure, not as a boolean.
	var res fs.BoolOrError

	assert.True(t, res.IsError())
	assert.False(t, res.IsTrue())
	assert.False(t, res.IsFalse())
}

func TestBoolOrErrorStates(t *testing.T) {
	res := fs.Bool(true)
	assert.True(t, res.IsTrue())
	assert.False(t, res.IsFalse())
	assert.False(t, res.IsError())

	res = fs.Bool(false)
	assert.False(t, res.IsTrue())
	assert.True(t, res.IsFalse())
	assert.False(t, res.IsError())

	res = fs.ErrorResult()
	assert.True(t, res.IsError())
}

func TestBoolOrErrorMutators(t *testing.T) {
	var res fs.BoolOrError

	res.Set(true)
	assert.True(t, res.IsTrue())

	res.Set(false)
	assert.True(t, res.IsFalse())

	res.SetError()
	assert.True(t, res.IsError())
}
