package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestRGBTensorRoundTrip(t *testing.T) {
	img := NewRGB(2, 3)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 10)
	}

	dense := RGBTensor(img)
	assert.Equal(t, tensor.Shape{2, 3, 3}, dense.Shape())

	back, err := RGBFromTensor(dense)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, back.Pix)
}

func TestRGBFromTensorFloat(t *testing.T) {
	dense := tensor.New(tensor.WithShape(1, 2, 3), tensor.WithBacking([]float32{0, 1.9, 300, -4, 128.5, 255}))
	img, err := RGBFromTensor(dense)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 255, 0, 128, 255}, img.Pix)
}

func TestRGBFromTensorRejectsShape(t *testing.T) {
	dense := tensor.New(tensor.WithShape(3, 2, 2), tensor.WithBacking(make([]uint8, 12)))
	_, err := RGBFromTensor(dense)
	assert.Error(t, err, "CHW layout is not accepted")

	flat := tensor.New(tensor.WithShape(4), tensor.WithBacking(make([]uint8, 4)))
	_, err = RGBFromTensor(flat)
	assert.Error(t, err)
}

func TestLabelMapFromTensor(t *testing.T) {
	tests := []struct {
		name    string
		backing interface{}
	}{
		{"int64", []int64{7, 0, 250, 18}},
		{"int32", []int32{7, 0, 250, 18}},
		{"float64", []float64{7.9, 0, 250, 18.2}},
		{"uint8", []uint8{7, 0, 250, 18}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dense := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(tt.backing))
			lbl, err := LabelMapFromTensor(dense)
			require.NoError(t, err)
			assert.Equal(t, []int32{7, 0, 250, 18}, lbl.Pix)
		})
	}

	_, err := LabelMapFromTensor(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]bool{true, false, true, false})))
	assert.Error(t, err, "bool tensors are not label maps")
}

func TestLabelTensor(t *testing.T) {
	lbl, err := LabelMapFromRows([][]int32{{1, 2, 3}, {4, 5, 250}})
	require.NoError(t, err)

	dense := LabelTensor(lbl)
	assert.Equal(t, tensor.Shape{2, 3}, dense.Shape())
	assert.Equal(t, tensor.Int64, dense.Dtype())
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 250}, dense.Data())
}

func TestNewCHWTensor(t *testing.T) {
	dense, err := NewCHWTensor(make([]float32, 3*4*5), 4, 5)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 4, 5}, dense.Shape())
	assert.Equal(t, tensor.Float32, dense.Dtype())

	_, err = NewCHWTensor(make([]float32, 10), 4, 5)
	assert.Error(t, err)
}
