package solver

import (
	"encoding/json"
	"testing"
)

func TestNewAdamValidates(t *testing.T) {
	if _, err := NewDefaultAdam(0, 1); err == nil {
		t.Error("expected an error for a zero step size")
	}
	if _, err := NewDefaultAdam(1e-2, 0); err == nil {
		t.Error("expected an error for a zero batch size")
	}

	s, err := NewDefaultAdam(1e-2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Solver == nil {
		t.Error("gorgonia solver was not created")
	}
}

func TestSolverJSON(t *testing.T) {
	s, err := NewDefaultAdam(5e-3, 1)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != Adam || decoded.Solver == nil {
		t.Fatalf("decoded solver \n\twant(Adam) \n\thave(%v)", decoded.Type)
	}
	if c := decoded.Config.(AdamConfig); c.StepSize != 5e-3 || c.Beta2 != 0.999 {
		t.Errorf("decoded config \n\twant(%v) \n\thave(%v)", s.Config, c)
	}

	vanilla := []byte(`{"Type":"Vanilla","Config":{"StepSize":0.1,"Batch":1}}`)
	if err := json.Unmarshal(vanilla, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != Vanilla {
		t.Errorf("decoded type \n\twant(Vanilla) \n\thave(%v)", decoded.Type)
	}

	bad := []byte(`{"Type":"Vanilla","Config":{"StepSize":-1,"Batch":1}}`)
	if err := json.Unmarshal(bad, &decoded); err == nil {
		t.Error("expected an error for a negative step size")
	}
}

func TestFresh(t *testing.T) {
	s, _ := NewDefaultAdam(1e-3, 1)
	f, err := s.Fresh()
	if err != nil {
		t.Fatal(err)
	}
	if f == s || f.Solver == s.Solver {
		t.Error("fresh solver shares state with the original")
	}
	if f.Config != s.Config {
		t.Error("fresh solver has a different configuration")
	}
}
