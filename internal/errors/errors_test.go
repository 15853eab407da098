// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := New(KindPrecondition, "set fault called on non-redundant router")
	assert.Equal(t, "set fault called on non-redundant router", err.Error())

	wrapped := Wrap(err, KindInternal, "transition failed")
	assert.Equal(t, "transition failed: set fault called on non-redundant router", wrapped.Error())

	assert.Nil(t, Wrap(nil, KindInternal, "nothing"))
	assert.Nil(t, Wrapf(nil, KindInternal, "nothing %d", 1))
}

func TestGetKind(t *testing.T) {
	err := New(KindConflict, "lock held")
	assert.Equal(t, KindConflict, GetKind(err))
	assert.True(t, IsKind(err, KindConflict))

	wrapped := Wrap(err, KindUnavailable, "service restart failed")
	assert.Equal(t, KindUnavailable, GetKind(wrapped))

	assert.Equal(t, KindUnknown, GetKind(errors.New("std error")))
	assert.False(t, IsKind(nil, KindUnknown))
}

func TestKindRetryable(t *testing.T) {
	assert.True(t, KindConflict.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.True(t, KindUnavailable.Retryable())
	assert.False(t, KindPrecondition.Retryable())
	assert.False(t, KindValidation.Retryable())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "precondition", KindPrecondition.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestAttributes(t *testing.T) {
	err := New(KindTimeout, "device not ready")
	err = Attr(err, "device", "eth1")
	err = Attr(err, "attempts", 15)

	attrs := GetAttributes(err)
	assert.Equal(t, "eth1", attrs["device"])
	assert.Equal(t, 15, attrs["attempts"])

	wrapped := Wrap(err, KindInternal, "failed")
	wrapped = Attr(wrapped, "operation", "set_master")

	all := GetAttributes(wrapped)
	assert.Equal(t, "eth1", all["device"])
	assert.Equal(t, "set_master", all["operation"])
}

func TestAttrOnPlainError(t *testing.T) {
	err := Attr(errors.New("boom"), "step", "routes")
	assert.Equal(t, KindInternal, GetKind(err))
	assert.Equal(t, "routes", GetAttributes(err)["step"])
}
