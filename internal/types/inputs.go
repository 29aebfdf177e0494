package types

import "fmt"

// InputType describes one declared input or output of a program's entry
// function. Only TensorSpec and ImageSpec implement it.
type InputType interface {
	// SpecName returns the declared name; may be empty.
	SpecName() string
	isInputType()
}

// TensorSpec declares a tensor input or output.
type TensorSpec struct {
	Name  string
	Shape []Dim
	DType DType
}

func (TensorSpec) isInputType() {}

// SpecName implements InputType.
func (s TensorSpec) SpecName() string { return s.Name }

func (s TensorSpec) String() string {
	return fmt.Sprintf("TensorSpec(%s: %s %s)", s.Name, s.DType, FormatShape(s.Shape))
}

// ColorLayout is the channel order of an image input.
type ColorLayout string

// Supported color layouts.
const (
	RGB       ColorLayout = "RGB"
	BGR       ColorLayout = "BGR"
	Grayscale ColorLayout = "G"
)

// ImageSpec declares an image input or output.
type ImageSpec struct {
	Name        string
	Shape       []Dim
	ColorLayout ColorLayout
	Scale       float64
	Bias        []float64
}

func (ImageSpec) isInputType() {}

// SpecName implements InputType.
func (s ImageSpec) SpecName() string { return s.Name }

func (s ImageSpec) String() string {
	return fmt.Sprintf("ImageSpec(%s: %s %s)", s.Name, s.ColorLayout, FormatShape(s.Shape))
}
