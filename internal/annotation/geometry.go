package annotation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Type is the kind of region an annotation marks.
type Type string

const (
	TypeBBox    Type = "bbox"
	TypePolygon Type = "polygon"
	TypePoint   Type = "point"
)

// ErrInvalidGeometry is returned when a geometry payload does not match its type.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry is the validated shape of an annotation. Exactly one implementation exists per Type.
type Geometry interface {
	Type() Type
}

// Point is a single coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (Point) Type() Type { return TypePoint }

// BBox is an axis-aligned rectangle anchored at its top-left corner.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (BBox) Type() Type { return TypeBBox }

// Polygon is a closed shape of at least three vertices.
type Polygon struct {
	Points []Point `json:"points"`
}

func (Polygon) Type() Type { return TypePolygon }

// Raw wire shapes use pointers so a missing field is distinguishable from zero.
type rawPoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type rawBBox struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

type rawPolygon struct {
	Points []rawPoint `json:"points"`
}

// ParseType checks that s names a known annotation type.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeBBox, TypePolygon, TypePoint:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown annotation type %q", ErrInvalidGeometry, s)
}

// ParseGeometry decodes raw as the shape required by t.
func ParseGeometry(t Type, raw json.RawMessage) (Geometry, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: geometry is required", ErrInvalidGeometry)
	}

	switch t {
	case TypePoint:
		var p rawPoint
		if err := decodeStrict(raw, &p); err != nil {
			return nil, err
		}
		pt, err := p.point()
		if err != nil {
			return nil, err
		}
		return pt, nil
	case TypeBBox:
		var b rawBBox
		if err := decodeStrict(raw, &b); err != nil {
			return nil, err
		}
		if b.X == nil || b.Y == nil || b.Width == nil || b.Height == nil {
			return nil, fmt.Errorf("%w: bbox needs x, y, width and height", ErrInvalidGeometry)
		}
		box := BBox{X: *b.X, Y: *b.Y, Width: *b.Width, Height: *b.Height}
		if !finite(box.X, box.Y, box.Width, box.Height) {
			return nil, fmt.Errorf("%w: coordinates must be finite", ErrInvalidGeometry)
		}
		if box.Width <= 0 || box.Height <= 0 {
			return nil, fmt.Errorf("%w: bbox width and height must be positive", ErrInvalidGeometry)
		}
		return box, nil
	case TypePolygon:
		var p rawPolygon
		if err := decodeStrict(raw, &p); err != nil {
			return nil, err
		}
		if len(p.Points) < 3 {
			return nil, fmt.Errorf("%w: polygon needs at least 3 points", ErrInvalidGeometry)
		}
		poly := Polygon{Points: make([]Point, 0, len(p.Points))}
		for _, rp := range p.Points {
			pt, err := rp.point()
			if err != nil {
				return nil, err
			}
			poly.Points = append(poly.Points, pt)
		}
		return poly, nil
	}
	return nil, fmt.Errorf("%w: unknown annotation type %q", ErrInvalidGeometry, t)
}

func (p rawPoint) point() (Point, error) {
	if p.X == nil || p.Y == nil {
		return Point{}, fmt.Errorf("%w: point needs x and y", ErrInvalidGeometry)
	}
	if !finite(*p.X, *p.Y) {
		return Point{}, fmt.Errorf("%w: coordinates must be finite", ErrInvalidGeometry)
	}
	return Point{X: *p.X, Y: *p.Y}, nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
