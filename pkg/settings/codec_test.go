package settings

import (
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_CanonicalForms(t *testing.T) {
	assert.Equal(t, "True", Bool.Format(true))
	assert.Equal(t, "False", Bool.Format(false))
	assert.Equal(t, "0.01", Double.Format(0.01))
	assert.Equal(t, "-42", Int.Format(-42))
	assert.Equal(t, "255,10,20,30", Color.Format(color.NRGBA{A: 255, R: 10, G: 20, B: 30}))
	assert.Equal(t, "1.5,-2,0", Point3dCodec.Format(Point3d{X: 1.5, Y: -2}))
	assert.Equal(t, "10,20,300,400", RectangleCodec.Format(Rectangle{Left: 10, Top: 20, Width: 300, Height: 400}))
	assert.Equal(t, "640,480", SizeCodec.Format(Size{Width: 640, Height: 480}))
	assert.Equal(t, `["a","b,c"]`, StringList.Format([]string{"a", "b,c"}))
	assert.Equal(t, "[]", StringList.Format(nil))
}

func TestCodec_RoundTrip(t *testing.T) {
	when := time.Date(2024, 3, 9, 14, 30, 15, 123456789, time.FixedZone("X", 3600))
	id := uuid.New()

	got, ok := Time.Parse(Time.Format(when))
	require.True(t, ok)
	assert.True(t, when.Equal(got))

	gotID, ok := GUID.Parse(GUID.Format(id))
	require.True(t, ok)
	assert.Equal(t, id, gotID)

	f, ok := Double.Parse(Double.Format(math.Pi))
	require.True(t, ok)
	assert.Equal(t, math.Pi, f)

	r, ok := Char.Parse(Char.Format('é'))
	require.True(t, ok)
	assert.Equal(t, 'é', r)

	p, ok := Point2dCodec.Parse(Point2dCodec.Format(Point2d{X: 0.1, Y: 1e-9}))
	require.True(t, ok)
	assert.Equal(t, Point2d{X: 0.1, Y: 1e-9}, p)

	list, ok := StringList.Parse(StringList.Format([]string{"x", "y, z"}))
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y, z"}, list)
}

func TestCodec_BoolParseIsCaseInsensitive(t *testing.T) {
	for _, s := range []string{"true", "TRUE", " True "} {
		v, ok := Bool.Parse(s)
		assert.True(t, ok, s)
		assert.True(t, v, s)
	}
	_, ok := Bool.Parse("yes")
	assert.False(t, ok)
}

func TestCodec_WrongFieldCountYieldsSentinel(t *testing.T) {
	c, ok := Color.Parse("255,10,20")
	assert.False(t, ok)
	assert.Equal(t, color.NRGBA{}, c)

	p, ok := Point3dCodec.Parse("1,2")
	assert.False(t, ok)
	assert.Equal(t, UnsetPoint3d, p)
	assert.False(t, p.IsValid())

	r, ok := RectangleCodec.Parse("1,2,3")
	assert.False(t, ok)
	assert.True(t, r.IsEmpty())

	s, ok := SizeCodec.Parse("7")
	assert.False(t, ok)
	assert.True(t, s.IsEmpty())
}

func TestCodec_NonNumericFieldYieldsSentinel(t *testing.T) {
	c, ok := Color.Parse("255,red,20,30")
	assert.False(t, ok)
	assert.Equal(t, color.NRGBA{}, c)

	b, ok := Byte.Parse("256")
	assert.False(t, ok)
	assert.Equal(t, uint8(math.MaxUint8), b)

	n, ok := Int.Parse("1.5")
	assert.False(t, ok)
	assert.Equal(t, int32(math.MaxInt32), n)

	u, ok := Uint.Parse("-1")
	assert.False(t, ok)
	assert.Equal(t, uint32(math.MaxUint32), u)

	_, ok = Char.Parse("ab")
	assert.False(t, ok)

	g, ok := GUID.Parse("not-a-guid")
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, g)
}
