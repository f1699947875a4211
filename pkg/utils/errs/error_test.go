package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomError_Error(t *testing.T) {
	err := Backend("create event failed").
		Arg("user", "U1").
		Arg("date", "2020-05-21").
		Wrap(errors.New("connection refused"))

	assert.Equal(t,
		"{kind: backend, msg: create event failed, args: map[date:2020-05-21 user:U1], wrappedError: {connection refused}}",
		err.Error())
	assert.Equal(t, "create event failed", err.Message())
}

func TestCustomError_NestedWrap(t *testing.T) {
	inner := Validation("month locked").Arg("month", "2020-05")
	outer := New("add rejected").Wrap(inner)

	assert.Equal(t,
		"{kind: internal, msg: add rejected, wrappedError: {kind: validation, msg: month locked, args: map[month:2020-05]}}",
		outer.Error())
	assert.True(t, errors.Is(outer, inner))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindParse, KindOf(Parse("bad date %q", "x")))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("ctx: %w", Validation("bad reason"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Reason foo is not valid", MessageOf(Validation("Reason %s is not valid", "foo"), "fallback"))
	assert.Equal(t, "fallback", MessageOf(errors.New("plain"), "fallback"))
}
