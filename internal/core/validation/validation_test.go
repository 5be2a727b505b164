package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `label:"name" validate:"required,min=2"`
	Email string  `label:"email" validate:"required,email"`
	Lat   float64 `label:"latitude" validate:"gte=-90,lte=90"`
	Kind  string  `label:"kind" validate:"oneof=a b"`
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	t.Parallel()

	err := Struct(sample{Name: "x", Email: "nope", Lat: 91, Kind: "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var ve *Error
	require.True(t, errors.As(err, &ve))

	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "must be at least 2 characters", fields["name"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be less than or equal to 90", fields["latitude"])
	assert.Equal(t, "must be one of: a, b", fields["kind"])
}

func TestStruct_Valid(t *testing.T) {
	t.Parallel()

	require.NoError(t, Struct(sample{Name: "ok", Email: "a@b.com", Lat: 10, Kind: "a"}))
}

func TestMerge(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Merge(nil, nil))

	err := Merge(NewError("a", "bad"), nil, NewError("b", "worse"))
	var ve *Error
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, "validation: a: bad; b: worse", err.Error())

	other := errors.New("boom")
	assert.Same(t, other, Merge(NewError("a", "bad"), other))
}
