package models

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Field is a 2-D raster of float64 samples stored in row-major order.
// A Field may be empty (zero rows or zero columns); gonum matrices cannot
// represent that case, so Field is the currency passed between stages and
// is converted to a *mat.Dense only where linear algebra is needed.
type Field struct {
	// Rows is the number of raster rows (image height)
	Rows int

	// Cols is the number of raster columns (image width)
	Cols int

	// Data holds Rows*Cols samples, row-major
	Data []float64
}

// NewField allocates a zero-filled field.
func NewField(rows, cols int) Field {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	return Field{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// FieldFromDense copies a gonum matrix into a Field.
func FieldFromDense(m mat.Matrix) Field {
	r, c := m.Dims()
	f := NewField(r, c)
	if d, ok := m.(*mat.Dense); ok {
		for i := 0; i < r; i++ {
			copy(f.Data[i*c:(i+1)*c], d.RawRowView(i))
		}
		return f
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			f.Data[i*c+j] = m.At(i, j)
		}
	}
	return f
}

// FieldFromRows builds a field from a slice of equal-length rows.
func FieldFromRows(rows [][]float64) (Field, error) {
	if len(rows) == 0 {
		return Field{}, nil
	}
	cols := len(rows[0])
	f := NewField(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return Field{}, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		copy(f.Data[i*cols:], row)
	}
	return f, nil
}

func (f Field) At(r, c int) float64     { return f.Data[r*f.Cols+c] }
func (f Field) Set(r, c int, v float64) { f.Data[r*f.Cols+c] = v }
func (f Field) Len() int                { return len(f.Data) }

// Empty reports whether the field holds no samples.
func (f Field) Empty() bool { return f.Rows == 0 || f.Cols == 0 }

// SameShape reports whether two fields have identical dimensions.
func (f Field) SameShape(g Field) bool { return f.Rows == g.Rows && f.Cols == g.Cols }

func (f Field) String() string { return fmt.Sprintf("%dx%d", f.Rows, f.Cols) }

// Dense returns a gonum view sharing the field's backing array, or nil if
// the field is empty.
func (f Field) Dense() *mat.Dense {
	if f.Empty() {
		return nil
	}
	return mat.NewDense(f.Rows, f.Cols, f.Data)
}

// Block copies the rows×cols block whose top-left corner is (r0, c0).
func (f Field) Block(r0, c0, rows, cols int) Field {
	if rows <= 0 || cols <= 0 {
		return Field{Rows: max(rows, 0), Cols: max(cols, 0), Data: []float64{}}
	}
	view := f.Dense().Slice(r0, r0+rows, c0, c0+cols)
	return FieldFromDense(view)
}

// Clone returns a deep copy.
func (f Field) Clone() Field {
	g := NewField(f.Rows, f.Cols)
	copy(g.Data, f.Data)
	return g
}

// Map returns a new field with fn applied to every sample.
func (f Field) Map(fn func(float64) float64) Field {
	g := NewField(f.Rows, f.Cols)
	for i, v := range f.Data {
		g.Data[i] = fn(v)
	}
	return g
}

// Max returns the largest sample. It panics on an empty field.
func (f Field) Max() float64 { return floats.Max(f.Data) }

// RawFrame is one grayscale capture from the polarization camera.
type RawFrame struct {
	Field

	// Source is the file the frame was decoded from, if any
	Source string

	// BitDepth is 8 or 16 depending on the decoded pixel format
	BitDepth int
}

// Quadrant identifies a quarter of a raw frame. The micro-polarizer layout
// maps three of the four quadrants to fixed polarizer orientations.
type Quadrant int

const (
	TopLeft Quadrant = iota
	TopRight
	BottomLeft
	BottomRight
)

func (q Quadrant) String() string {
	switch q {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	}
	return fmt.Sprintf("quadrant(%d)", int(q))
}

// Mode selects single- or dual-frame acquisition.
type Mode int

const (
	SingleFrame Mode = iota
	DualFrame
)

func (m Mode) String() string {
	if m == DualFrame {
		return "dual"
	}
	return "single"
}

// ParseMode accepts "single" or "dual".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "single", "1":
		return SingleFrame, nil
	case "dual", "2":
		return DualFrame, nil
	}
	return SingleFrame, fmt.Errorf("unknown mode %q (must be single or dual)", s)
}
