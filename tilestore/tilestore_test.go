package tilestore

import (
	"testing"

	"github.com/LiuYangArt/sutu-sub000/common"
)

func TestCoordRangeSingleTile(t *testing.T) {
	coords := CoordRange(common.Rect{X: 10, Y: 10, W: 5, H: 5})
	if len(coords) != 1 || coords[0] != (Coord{TX: 0, TY: 0}) {
		t.Fatalf("CoordRange = %+v, want [{0 0}]", coords)
	}
}

func TestCoordRangeSpansMultipleTiles(t *testing.T) {
	// rect [250, 270) straddles tile 0 (0..255) and tile 1 (256..511) on X.
	coords := CoordRange(common.Rect{X: 250, Y: 0, W: 20, H: 1})
	want := map[Coord]bool{{TX: 0, TY: 0}: true, {TX: 1, TY: 0}: true}
	if len(coords) != 2 {
		t.Fatalf("CoordRange = %+v, want 2 coords", coords)
	}
	for _, c := range coords {
		if !want[c] {
			t.Errorf("unexpected coord %+v", c)
		}
	}
}

func TestCoordRangeNegativeOrigin(t *testing.T) {
	// a rect entirely left of the origin should map to negative tile coords.
	coords := CoordRange(common.Rect{X: -10, Y: -10, W: 4, H: 4})
	if len(coords) != 1 || coords[0] != (Coord{TX: -1, TY: -1}) {
		t.Fatalf("CoordRange = %+v, want [{-1 -1}]", coords)
	}
}

func TestCoordRangeEmptyRect(t *testing.T) {
	if coords := CoordRange(common.Rect{}); coords != nil {
		t.Errorf("CoordRange(empty) = %+v, want nil", coords)
	}
}

func TestTileRect(t *testing.T) {
	tile := &Tile{OriginX: 256, OriginY: 0, Width: 256, Height: 200}
	got := tile.Rect()
	want := common.Rect{X: 256, Y: 0, W: 256, H: 200}
	if got != want {
		t.Errorf("Rect() = %+v, want %+v", got, want)
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{0, 256, 0},
		{255, 256, 0},
		{256, 256, 1},
		{-1, 256, -1},
		{-256, 256, -1},
		{-257, 256, -2},
	}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
