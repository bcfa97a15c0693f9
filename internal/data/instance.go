// Package data provides training instances and the data sets they are loaded from.
package data

import (
	"slices"
	"strconv"
	"strings"
)

// Instance is one example: the expected outputs and the input vector that
// should produce them. For classification losses ExpectedOutputs holds a
// single class index.
type Instance struct {
	ExpectedOutputs []float64
	Inputs          []float64
}

// NewInstance copies both vectors so the instance does not alias caller memory.
func NewInstance(expectedOutputs, inputs []float64) Instance {
	return Instance{
		ExpectedOutputs: slices.Clone(expectedOutputs),
		Inputs:          slices.Clone(inputs),
	}
}

// Equal reports whether both instances hold identical vectors.
func (i Instance) Equal(other Instance) bool {
	return slices.Equal(i.ExpectedOutputs, other.ExpectedOutputs) &&
		slices.Equal(i.Inputs, other.Inputs)
}

// String formats the instance the way the data files store it, e.g. "[1 : 0,1]".
func (i Instance) String() string {
	var b strings.Builder
	b.WriteByte('[')
	writeValues(&b, i.ExpectedOutputs)
	b.WriteString(" : ")
	writeValues(&b, i.Inputs)
	b.WriteByte(']')
	return b.String()
}

func writeValues(b *strings.Builder, values []float64) {
	for j, v := range values {
		if j > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
}
