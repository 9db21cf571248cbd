package pipelines

import (
	"testing"

	"github.com/LiuYangArt/sutu-sub000/common"
)

func TestBuildTilesSmallAreaSingleTile(t *testing.T) {
	tiles, err := BuildTiles(common.Rect{X: 0, Y: 0, W: 100, H: 100})
	if err != nil {
		t.Fatalf("BuildTiles: %v", err)
	}
	if len(tiles) != 1 {
		t.Fatalf("len(tiles) = %d, want 1", len(tiles))
	}
	if tiles[0].Rect != (common.Rect{X: 0, Y: 0, W: 100, H: 100}) {
		t.Errorf("tile rect = %+v", tiles[0].Rect)
	}
	if tiles[0].WorkgroupCount != ([3]uint32{13, 13, 1}) {
		t.Errorf("workgroup count = %v, want [13 13 1]", tiles[0].WorkgroupCount)
	}
}

func TestBuildTilesLargeAreaPartitions(t *testing.T) {
	// 2000 x 2000 = 4,000,000 px > 2,000,000 threshold.
	tiles, err := BuildTiles(common.Rect{X: 0, Y: 0, W: 2000, H: 2000})
	if err != nil {
		t.Fatalf("BuildTiles: %v", err)
	}
	if len(tiles) <= 1 {
		t.Fatalf("expected multiple tiles, got %d", len(tiles))
	}
	// every tile must cover <= maxTileSide on each edge and cumulative area must equal the bbox.
	total := 0
	for _, tile := range tiles {
		if tile.Rect.W > maxTileSide || tile.Rect.H > maxTileSide {
			t.Errorf("tile %+v exceeds max side %d", tile.Rect, maxTileSide)
		}
		total += tile.Rect.W * tile.Rect.H
	}
	if total != 2000*2000 {
		t.Errorf("total tile area = %d, want %d", total, 2000*2000)
	}
}

func TestBuildTilesEmptyBBoxReturnsNil(t *testing.T) {
	tiles, err := BuildTiles(common.Rect{})
	if err != nil {
		t.Fatalf("BuildTiles(empty): %v", err)
	}
	if tiles != nil {
		t.Errorf("tiles = %+v, want nil", tiles)
	}
}

func TestBuildTilesRejectsOverTileCount(t *testing.T) {
	// a strip one maxTileSide high and MaxTileCount+1 maxTileSide-wide tiles
	// long partitions into MaxTileCount+1 tiles, one over the limit.
	bbox := common.Rect{X: 0, Y: 0, W: maxTileSide * (MaxTileCount + 1), H: maxTileSide}
	_, err := BuildTiles(bbox)
	if err == nil {
		t.Fatal("BuildTiles: expected error for over-budget tile count, got nil")
	}
}
