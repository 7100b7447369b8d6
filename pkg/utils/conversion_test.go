package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBool(t *testing.T) {
	tests := []struct {
		in   interface{}
		want bool
	}{
		{nil, false},
		{true, true},
		{"true", true},
		{" Yes ", true},
		{"on", true},
		{"1", true},
		{[]byte("1"), true},
		{int64(0), false},
		{"false", false},
		{"nope", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ToBool(tc.in), "input %v", tc.in)
	}
}

func TestToInt64(t *testing.T) {
	v, err := ToInt64(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = ToInt64(float64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = ToInt64(7.5)
	assert.Error(t, err)

	_, err = ToInt64("abc")
	assert.Error(t, err)
}

func TestToInt64_Range(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		want    int64
		wantErr bool
	}{
		{name: "uint64 max int64", in: uint64(math.MaxInt64), want: math.MaxInt64},
		{name: "uint64 overflow", in: uint64(math.MaxInt64) + 1, wantErr: true},
		{name: "uint overflow", in: ^uint(0), wantErr: true},
		{name: "whole float32", in: float32(12), want: 12},
		{name: "fractional float32", in: float32(2.5), wantErr: true},
		{name: "negative float64", in: float64(-3), want: -3},
		{name: "float64 overflow", in: 1e19, wantErr: true},
		{name: "NaN", in: math.NaN(), wantErr: true},
		{name: "infinity", in: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt64(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToFloat64(t *testing.T) {
	v, err := ToFloat64("3.25")
	require.NoError(t, err)
	assert.InDelta(t, 3.25, v, 1e-9)

	v, err = ToFloat64(int32(3))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-9)

	_, err = ToFloat64(struct{}{})
	assert.Error(t, err)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank("   "))
	assert.False(t, IsBlank("x"))
	assert.False(t, IsBlank(0))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "abc", ToString("abc"))
	assert.Equal(t, "abc", ToString([]byte("abc")))
	assert.Equal(t, "42", ToString(int64(42)))
	id := NewID()
	assert.Equal(t, id.String(), ToString(id))
}
