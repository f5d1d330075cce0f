package faces

import (
	"errors"
	"fmt"
	"math"

	"rollcall/utils"
)

// DescriptorLength is the dimensionality of the embedding produced by the dlib ResNet model
const DescriptorLength = 128

type Descriptor [DescriptorLength]float32

var ErrDescriptorLength = errors.New("invalid descriptor length")

func (d Descriptor) IsZero() bool {
	return d == Descriptor{}
}

func (d Descriptor) Bytes() []byte {
	return utils.Float32ArrayToByteArray(d[:])
}

// DescriptorFromBytes decodes a descriptor stored with Descriptor.Bytes
func DescriptorFromBytes(b []byte) (d Descriptor, err error) {
	if len(b) != DescriptorLength*4 {
		return d, fmt.Errorf("%w: %d bytes", ErrDescriptorLength, len(b))
	}
	copy(d[:], utils.ByteArrayToFloat32Array(b))
	return d, nil
}

// Distance is the euclidean distance between two descriptors
func Distance(a, b Descriptor) float64 {
	sum := 0.0
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Mean averages descriptors component-wise
func Mean(descriptors []Descriptor) (mean Descriptor) {
	if len(descriptors) == 0 {
		return
	}
	var sum [DescriptorLength]float64
	for _, d := range descriptors {
		for i, v := range d {
			sum[i] += float64(v)
		}
	}
	for i := range sum {
		mean[i] = float32(sum[i] / float64(len(descriptors)))
	}
	return
}
