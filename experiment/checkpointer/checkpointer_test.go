package checkpointer

import (
	"strings"
	"testing"
)

type recorder struct {
	saved []string
}

func (r *recorder) Save(filename string) error {
	r.saved = append(r.saved, filename)
	return nil
}

func TestNStep(t *testing.T) {
	r := &recorder{}
	c, err := NewNStep(3, r, FilenameEnumerator(0, "params", ".bin"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 7; i++ {
		if err := c.Checkpoint(i); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"params1.bin", "params2.bin"}
	if len(r.saved) != len(want) {
		t.Fatalf("want(%v) \n\thave(%v)", want, r.saved)
	}
	for i := range want {
		if r.saved[i] != want[i] {
			t.Errorf("checkpoint %v \n\twant(%v) \n\thave(%v)", i, want[i],
				r.saved[i])
		}
	}

	if _, err := NewNStep(0, r, nil); err == nil {
		t.Error("expected error for n = 0")
	}
}

func TestFileTimer(t *testing.T) {
	name := FileTimer("params", ".bin")()
	if !strings.HasPrefix(name, "params-") || !strings.HasSuffix(name,
		".bin") {
		t.Errorf("unexpected filename %v", name)
	}
}
