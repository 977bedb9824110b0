package initwfn

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNormCColumnNorms(t *testing.T) {
	const rows, cols = 7, 3
	for _, scale := range []float64{1.0, 0.2} {
		init, err := NewNormC(scale, 42)
		if err != nil {
			t.Fatal(err)
		}

		w, err := init.Float64s(rows, cols)
		if err != nil {
			t.Fatal(err)
		}
		if len(w) != rows*cols {
			t.Fatalf("wrong number of weights \n\twant(%v) \n\thave(%v)",
				rows*cols, len(w))
		}

		for j := 0; j < cols; j++ {
			var sumSq float64
			for i := 0; i < rows; i++ {
				sumSq += w[i*cols+j] * w[i*cols+j]
			}
			if norm := math.Sqrt(sumSq); math.Abs(norm-scale) > 1e-12 {
				t.Errorf("column %v norm \n\twant(%v) \n\thave(%v)", j,
					scale, norm)
			}
		}
	}
}

func TestNormCSeeded(t *testing.T) {
	a, _ := NewNormC(1.0, 7)
	b, _ := NewNormC(1.0, 7)

	wa, _ := a.Float64s(4, 4)
	wb, _ := b.Float64s(4, 4)
	for i := range wa {
		if wa[i] != wb[i] {
			t.Fatalf("initializers with equal seeds differ at %v", i)
		}
	}
}

func TestNewNormCNegativeScale(t *testing.T) {
	if _, err := NewNormC(-1, 0); err == nil {
		t.Error("expected an error for a negative scale")
	}
}

func TestConstant(t *testing.T) {
	init, _ := NewConstant(0.1)
	w, err := init.Float64s(1, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range w {
		if v != 0.1 {
			t.Errorf("weight %v \n\twant(0.1) \n\thave(%v)", i, v)
		}
	}
}

func TestUnmarshalJSON(t *testing.T) {
	init, _ := NewNormC(0.2, 3)
	data, err := json.Marshal(init)
	if err != nil {
		t.Fatal(err)
	}

	var decoded InitWFn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != NormC {
		t.Fatalf("decoded type \n\twant(%v) \n\thave(%v)", NormC, decoded.Type)
	}
	if c := decoded.Config.(NormCConfig); c.Scale != 0.2 || c.Seed != 3 {
		t.Errorf("decoded config \n\twant({0.2 3}) \n\thave(%v)", c)
	}

	if err := json.Unmarshal([]byte(`{"Type":"Glorot"}`), &decoded); err == nil {
		t.Error("expected an error for an unknown type")
	}
}

func TestFreshRestartsStream(t *testing.T) {
	init, err := NewNormC(1.0, 9)
	if err != nil {
		t.Fatal(err)
	}
	first, err := init.Float64s(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := init.Float64s(3, 2); err != nil {
		t.Fatal(err)
	}

	fresh, err := init.Fresh()
	if err != nil {
		t.Fatal(err)
	}
	again, err := fresh.Float64s(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("fresh initializer did not restart its stream at %v",
				i)
		}
	}
}
