package settings

// UnsetValue marks a coordinate that has never been assigned.
const UnsetValue = -1.23432101234321e+308

// Point3d is a location in model space.
type Point3d struct {
	X, Y, Z float64
}

// UnsetPoint3d is returned when a stored point cannot be parsed.
var UnsetPoint3d = Point3d{X: UnsetValue, Y: UnsetValue, Z: UnsetValue}

// IsValid reports whether every coordinate has been assigned.
func (p Point3d) IsValid() bool {
	return p.X != UnsetValue && p.Y != UnsetValue && p.Z != UnsetValue
}

// Point2d is a location on a plane.
type Point2d struct {
	X, Y float64
}

// UnsetPoint2d is returned when a stored 2d point cannot be parsed.
var UnsetPoint2d = Point2d{X: UnsetValue, Y: UnsetValue}

// IsValid reports whether both coordinates have been assigned.
func (p Point2d) IsValid() bool {
	return p.X != UnsetValue && p.Y != UnsetValue
}

// Size is an integer width and height, typically in screen pixels.
type Size struct {
	Width, Height int
}

// IsEmpty reports whether both dimensions are zero.
func (s Size) IsEmpty() bool { return s == Size{} }

// Rectangle is an integer rectangle described by its top-left corner and extent.
type Rectangle struct {
	Left, Top, Width, Height int
}

// IsEmpty reports whether every field is zero.
func (r Rectangle) IsEmpty() bool { return r == Rectangle{} }
