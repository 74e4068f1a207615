package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushAndString(t *testing.T) {
	x := New("x").PushField("a").PushIndex(2)
	assert.Equal(t, "x.a[2]", x.String())

	base, path := x.Split()
	assert.Equal(t, "x", base)
	require.Len(t, path, 2)
	assert.Equal(t, FieldStep, path[0].Kind)
	assert.Equal(t, PositionStep, path[1].Kind)
}

func TestEqualIsStructural(t *testing.T) {
	a := New("x").PushField("a")
	b := New("x").PushField("a")
	c := New("x").PushField("b")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestCompareOrdersFieldBeforePosition(t *testing.T) {
	field := New("x").PushField("a")
	pos := New("x").PushIndex(0)
	assert.Negative(t, field.Compare(pos))
	assert.Positive(t, pos.Compare(field))
}

func TestCompareIsTotalAndStable(t *testing.T) {
	ids := []Ident{
		New("x").PushIndex(1),
		New("x").PushField("a"),
		New("x"),
		New("x").PushIndex(0),
	}
	for i := range ids {
		for j := range ids {
			if i == j {
				continue
			}
			c1 := ids[i].Compare(ids[j])
			c2 := ids[j].Compare(ids[i])
			assert.Equal(t, -c1 > 0, c2 > 0 || c1 == 0 && c2 == 0)
		}
	}
}

func TestAuxGenMonotonicAndResettable(t *testing.T) {
	g := NewAuxGen()
	a := g.Next()
	b := g.Next()
	assert.False(t, a.Equal(b))
	assert.True(t, IsReserved(a))

	g2 := NewAuxGen()
	c := g2.Next()
	assert.True(t, a.Equal(c), "fresh generators restart from the same first value")
}

func TestCallGenKeyedByCallee(t *testing.T) {
	g := NewCallGen()
	f0 := g.Next("f")
	f1 := g.Next("f")
	g0 := g.Next("g")

	assert.Equal(t, "f.__returns[0]", f0.String())
	assert.Equal(t, "f.__returns[1]", f1.String())
	assert.Equal(t, "g.__returns[0]", g0.String())
	assert.True(t, IsReserved(f0))
}

func TestIsReservedRejectsOnlyReservedNames(t *testing.T) {
	assert.False(t, IsReserved(New("x")))
	assert.False(t, IsReserved(New("x").PushField("abs")))
	assert.True(t, IsReserved(New("__abs").PushIndex(0)))
}

func TestNormalizesUnicodeIdentifiers(t *testing.T) {
	nfc := New("caf\u00e9") // precomposed e-acute
	nfd := New("cafe\u0301") // e followed by a combining acute accent
	assert.True(t, nfc.Equal(nfd))
}
