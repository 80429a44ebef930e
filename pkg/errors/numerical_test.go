package errors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("scale", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("unexpected error for finite values: %v", err)
	}

	err := CheckNumericalStability("scale", []float64{1, math.NaN()}, 3)
	if err == nil {
		t.Fatal("expected error for NaN value")
	}

	var instErr *NumericalInstabilityError
	if !As(err, &instErr) {
		t.Fatalf("expected *NumericalInstabilityError, got %T", err)
	}
	if instErr.Operation != "scale" || instErr.Iteration != 3 {
		t.Errorf("unexpected error fields: %+v", instErr)
	}
}

func TestCheckMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("pca", m, 2, 2, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	m.Set(1, 0, math.Inf(1))
	if err := CheckMatrix("pca", m, 2, 2, 0); err == nil {
		t.Error("expected error for Inf entry")
	}
}

func TestSafeDivideAndClip(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"divide", SafeDivide(6, 3), 2},
		{"divide by zero", SafeDivide(6, 0), 0},
		{"clip above", ClipValue(100, 0, 7), 7},
		{"clip below", ClipValue(-3, 0, 7), 0},
		{"inside", ClipValue(4, 0, 7), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
