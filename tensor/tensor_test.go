package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		want    []int
		wantErr bool
	}{
		{"infer time", []int{2, -1, 3}, []int{2, 2, 3}, false},
		{"explicit", []int{4, 3}, []int{4, 3}, false},
		{"not divisible", []int{2, -1, 5}, nil, true},
		{"two inferred", []int{-1, -1}, nil, true},
		{"wrong count", []int{5, 3}, nil, true},
		{"zero dim", []int{0, 12}, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x := New(2, 6)
			v, err := x.View(tc.shape...)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrShapeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Shape())
		})
	}
}

func TestViewSharesData(t *testing.T) {
	x := New(2, 6)
	v, err := x.View(2, 3, 2)
	require.NoError(t, err)
	v.Set(7, 1, 2, 1)
	assert.Equal(t, 7.0, x.At(1, 5))
}

func TestFromSlice(t *testing.T) {
	_, err := FromSlice([]float64{1, 2, 3}, 2, 2)
	require.ErrorIs(t, err, ErrShapeMismatch)

	x, err := FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, x.At(1, 0))
}

func TestAdd(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	b, _ := FromSlice([]float64{10, 20, 30, 40}, 2, 2)
	c, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 33, 44}, c.Data())
	assert.Equal(t, []float64{1, 2, 3, 4}, a.Data())

	_, err = a.Add(New(4))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMask(t *testing.T) {
	m := NewMask(2, 3)
	m.SetInvalid(1, 0, true)
	m.SetInvalid(1, 2, true)
	assert.Equal(t, 3, m.Valid(0))
	assert.Equal(t, 1, m.Valid(1))
	assert.True(t, m.Invalid(1, 2))
	assert.False(t, m.Invalid(0, 2))
}
