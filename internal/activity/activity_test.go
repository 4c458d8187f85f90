package activity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_PreservesOrder(t *testing.T) {
	s, err := NewStore([]Activity{
		{ID: 5, TriggerID: 1, Type: "FSREQWRAP"},
		{ID: 3, TriggerID: 5, Type: "FSREQWRAP"},
		{ID: 9, TriggerID: 3, Type: "TickObject"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 3, 9}, s.IDs())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Index(3))
	assert.Equal(t, -1, s.Index(42))

	a, ok := s.Get(9)
	require.True(t, ok)
	assert.Equal(t, "TickObject", a.Type)
	assert.False(t, s.Has(42))
}

func TestNewStore_DuplicateID(t *testing.T) {
	_, err := NewStore([]Activity{{ID: 1}, {ID: 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestNewStore_CopiesInput(t *testing.T) {
	in := []Activity{{ID: 1, Type: "A"}}
	s := MustNewStore(in)
	in[0].Type = "B"

	a, _ := s.Get(1)
	assert.Equal(t, "A", a.Type)
}

func TestActivity_MissingSignals(t *testing.T) {
	a := &Activity{ID: 1}

	_, ok := a.FirstInit()
	assert.False(t, ok)
	_, ok = a.FirstDestroy()
	assert.False(t, ok)
	assert.Equal(t, "", a.Frame(0))
	assert.Equal(t, "", a.Frame(-1))

	a.InitStack = []string{"at open (fs.js:1:1)"}
	assert.Equal(t, "at open (fs.js:1:1)", a.Frame(0))
	assert.Equal(t, "", a.Frame(1))
}

func TestCheckOrder(t *testing.T) {
	ordered := MustNewStore([]Activity{
		{ID: 1, Init: []int64{10}},
		{ID: 2},
		{ID: 3, Init: []int64{10}},
		{ID: 4, Init: []int64{20}},
	})
	assert.Nil(t, ordered.CheckOrder())

	disordered := MustNewStore([]Activity{
		{ID: 1, Init: []int64{10}},
		{ID: 2, Init: []int64{30}},
		{ID: 3, Init: []int64{20}},
	})
	v := disordered.CheckOrder()
	require.NotNil(t, v)
	assert.Equal(t, int64(3), v.ID)
	assert.Equal(t, int64(2), v.PreviousID)
	assert.Contains(t, v.Error(), "activity 3")
}
