package dataset

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestGenerate_ShapesAndBalance(t *testing.T) {
	opts := Options{Classes: 3, Samples: 100, Features: 4, ClusterStd: 1, Separation: 5, Seed: 1}
	X, y, err := Generate(opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	n, d := X.Dims()
	if n != 100 || d != 4 {
		t.Fatalf("X dims = %dx%d, want 100x4", n, d)
	}
	if len(y) != 100 {
		t.Fatalf("len(y) = %d, want 100", len(y))
	}

	// 100 over 3 classes: sizes 34, 33, 33.
	counts := map[int]int{}
	for _, label := range y {
		counts[label]++
	}
	if counts[0] != 34 || counts[1] != 33 || counts[2] != 33 {
		t.Errorf("class sizes = %v, want map[0:34 1:33 2:33]", counts)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Seed = 99

	Xa, ya, err := Generate(opts)
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	Xb, yb, err := Generate(opts)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	if !mat.Equal(Xa, Xb) {
		t.Error("feature matrices differ for the same seed")
	}
	for i := range ya {
		if ya[i] != yb[i] {
			t.Fatalf("labels differ at %d", i)
		}
	}
}

func TestGenerate_SeedChangesData(t *testing.T) {
	opts := DefaultOptions()
	opts.Seed = 1
	Xa, _, _ := Generate(opts)
	opts.Seed = 2
	Xb, _, _ := Generate(opts)
	if mat.Equal(Xa, Xb) {
		t.Error("different seeds produced identical data")
	}
}

func TestGenerate_ValidatesOptions(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Options)
	}{
		{"one class", func(o *Options) { o.Classes = 1 }},
		{"too few samples", func(o *Options) { o.Samples = 2 }},
		{"zero features", func(o *Options) { o.Features = 0 }},
		{"zero std", func(o *Options) { o.ClusterStd = 0 }},
		{"zero separation", func(o *Options) { o.Separation = 0 }},
	}
	for _, tc := range cases {
		opts := DefaultOptions()
		tc.mod(&opts)
		if _, _, err := Generate(opts); err == nil {
			t.Errorf("%s: Generate accepted %+v", tc.name, opts)
		}
	}
}
