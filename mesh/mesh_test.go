package mesh

import "testing"

func TestNewUniform(t *testing.T) {
	m, err := NewUniform(Rect{A: 1, B: 3}, 4)
	if err != nil {
		t.Fatalf("NewUniform: %v", err)
	}
	if m.NumCells() != 4 || m.NumFaces() != 5 {
		t.Fatalf("cells=%d faces=%d", m.NumCells(), m.NumFaces())
	}
	if m.Step() != 0.5 || m.Volume(2) != 0.5 {
		t.Fatalf("h=%g volume=%g", m.Step(), m.Volume(2))
	}
	wantCenters := []float64{1.25, 1.75, 2.25, 2.75}
	for i, c := range m.Cells() {
		if m.Center(c) != wantCenters[i] {
			t.Fatalf("Center(%d) = %g, want %g", c, m.Center(c), wantCenters[i])
		}
	}
}

func TestNewUniformInvalid(t *testing.T) {
	if _, err := NewUniform(Rect{A: 0, B: 1}, 0); err == nil {
		t.Fatalf("expected error for zero cells")
	}
	if _, err := NewUniform(Rect{A: 1, B: 1}, 3); err == nil {
		t.Fatalf("expected error for empty domain")
	}
}

func TestNeighbours(t *testing.T) {
	m, _ := NewUniform(Rect{A: 0, B: 1}, 3)
	if !m.NeighbourCell(0, Left).IsNone() || m.NeighbourCell(0, Right) != 0 {
		t.Fatalf("left boundary face neighbours wrong")
	}
	if m.NeighbourCell(3, Left) != 2 || !m.NeighbourCell(3, Right).IsNone() {
		t.Fatalf("right boundary face neighbours wrong")
	}
	if m.NeighbourCell(1, Left) != 0 || m.NeighbourCell(1, Right) != 1 {
		t.Fatalf("interior face neighbours wrong")
	}
	if m.NeighbourFace(1, Left) != 1 || m.NeighbourFace(1, Right) != 2 {
		t.Fatalf("cell faces wrong")
	}
	if m.AdjacentCell(0, Right) != 1 || !m.AdjacentCell(2, Right).IsNone() || !m.AdjacentCell(0, Left).IsNone() {
		t.Fatalf("adjacent cells wrong")
	}
}
