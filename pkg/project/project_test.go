package project_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/chisel/pkg/project"
	"github.com/chazu/chisel/pkg/stock"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func box(t *testing.T, center v3.Vec, size float64) *stock.Box {
	t.Helper()
	b, err := stock.NewBox(center, v3.Vec{X: size, Y: size, Z: size}, stock.Material{SafeDistance: 1})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func down(x, y float64) project.Ray {
	return project.Ray{Origin: v3.Vec{X: x, Y: y, Z: 20}, Dir: v3.Vec{Z: -1}}
}

func TestProjectOntoTop(t *testing.T) {
	forms := []stock.Form{box(t, v3.Vec{}, 10)}
	tests := []struct {
		name string
		ray  project.Ray
		hit  bool
		pos  v3.Vec
		dir  v3.Vec
	}{
		{"centre", down(0, 0), true, v3.Vec{Z: 5}, v3.Vec{Z: 1}},
		{"off centre", down(3, -2), true, v3.Vec{X: 3, Y: -2, Z: 5}, v3.Vec{Z: 1}},
		{"miss", down(8, 0), false, v3.Vec{}, v3.Vec{}},
		{"side", project.Ray{Origin: v3.Vec{X: 20, Z: 1}, Dir: v3.Vec{X: -1}}, true, v3.Vec{X: 5, Z: 1}, v3.Vec{X: 1}},
		{"pointing away", project.Ray{Origin: v3.Vec{Z: 20}, Dir: v3.Vec{Z: 1}}, false, v3.Vec{}, v3.Vec{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := project.Project(context.Background(), forms, []project.Ray{tt.ray}, project.Options{})
			if err != nil {
				t.Fatal(err)
			}
			r := res[0]
			if r.Hit != tt.hit {
				t.Fatalf("hit = %v, want %v", r.Hit, tt.hit)
			}
			if !tt.hit {
				return
			}
			if r.Point.Pos.Sub(tt.pos).Length() > 1e-9 {
				t.Errorf("pos = %v, want %v", r.Point.Pos, tt.pos)
			}
			if r.Point.Dir.Sub(tt.dir).Length() > 1e-9 {
				t.Errorf("dir = %v, want %v", r.Point.Dir, tt.dir)
			}
		})
	}
}

func TestProjectNearestForm(t *testing.T) {
	low := box(t, v3.Vec{}, 10)
	high := box(t, v3.Vec{Z: 4}, 4)
	res, err := project.Project(context.Background(), []stock.Form{low, high}, []project.Ray{down(0, 0), down(4, 4)}, project.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Form != stock.Form(high) || math.Abs(res[0].Point.Pos.Z-6) > 1e-9 {
		t.Errorf("centre ray hit %v at %v, want the raised box at z=6", res[0].Form, res[0].Point.Pos)
	}
	if res[1].Form != stock.Form(low) || math.Abs(res[1].Point.Pos.Z-5) > 1e-9 {
		t.Errorf("corner ray hit %v at %v, want the base at z=5", res[1].Form, res[1].Point.Pos)
	}
}

func TestProjectKeepsRayOrder(t *testing.T) {
	forms := []stock.Form{box(t, v3.Vec{}, 10)}
	var rays []project.Ray
	for i := 0; i < 2000; i++ {
		rays = append(rays, down(-4+8*float64(i)/1999, 0))
	}
	res, err := project.Project(context.Background(), forms, rays, project.Options{Parallel: 8, Standoff: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != len(rays) {
		t.Fatalf("got %d results, want %d", len(res), len(rays))
	}
	for i, r := range res {
		if !r.Hit {
			t.Fatalf("ray %d missed", i)
		}
		if math.Abs(r.Point.Pos.X-rays[i].Origin.X) > 1e-12 || math.Abs(r.Point.Pos.Z-6.5) > 1e-9 {
			t.Fatalf("result %d = %v, want above ray %v", i, r.Point.Pos, rays[i].Origin)
		}
	}
}

func TestPathDropsMisses(t *testing.T) {
	forms := []stock.Form{box(t, v3.Vec{}, 10)}
	res, err := project.Project(context.Background(), forms, []project.Ray{down(0, 0), down(9, 0), down(1, 0)}, project.Options{})
	if err != nil {
		t.Fatal(err)
	}
	p, missed := project.Path("surface", res)
	if missed != 1 || p.Len() != 2 {
		t.Errorf("path has %d points and %d misses, want 2 and 1", p.Len(), missed)
	}
	if p.Form != forms[0] {
		t.Error("path should run against the hit stock")
	}
}

func TestProjectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := project.Project(ctx, []stock.Form{box(t, v3.Vec{}, 10)}, []project.Ray{down(0, 0)}, project.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
