package workitem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarAssignsSequentialIDs(t *testing.T) {
	s := NewStore()
	c1 := s.NewCar("SedanLX", []string{"black"}, false, 100)
	c2 := s.NewCar("SedanLX", []string{"black"}, false, 200)

	assert.Equal(t, "C1", c1.ID)
	assert.Equal(t, "C2", c2.ID)
	assert.EqualValues(t, 1, c1.SequenceNumber)
	assert.EqualValues(t, 2, c2.SequenceNumber)
}

func TestNewPartSetsPartFields(t *testing.T) {
	s := NewStore()
	p := s.NewPart("SEAT", "SEAT", 100)

	assert.True(t, p.IsPart)
	assert.Equal(t, "SEAT", p.PartName)
	assert.Equal(t, "PART-SEAT-1", p.ID)
}

func TestPeekNextSequenceDoesNotConsume(t *testing.T) {
	s := NewStore()
	s.NewCar("SedanLX", nil, false, 100)

	peeked := s.PeekNextSequence()
	assert.EqualValues(t, 2, peeked)

	next := s.NewCar("SedanLX", nil, false, 200)
	assert.EqualValues(t, 2, next.SequenceNumber)
}

func TestGetReturnsStoredItem(t *testing.T) {
	s := NewStore()
	c := s.NewCar("SedanLX", nil, false, 100)

	got, ok := s.Get(c.ID)
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = s.Get("nonexistent")
	assert.False(t, ok)
}

func TestMarkCompletedIsIdempotentAndCountsDefects(t *testing.T) {
	s := NewStore()
	c := s.NewCar("SedanLX", nil, true, 100)

	s.MarkCompleted(c, "BODY", "BODY-MAIN", 500)
	s.MarkCompleted(c, "BODY", "BODY-MAIN", 999)

	assert.Equal(t, int64(500), c.CompletedAt)
	assert.EqualValues(t, 1, s.CompletedByLine("BODY-MAIN"))
	assert.EqualValues(t, 1, s.CompletedByShop("BODY"))
	assert.EqualValues(t, 1, s.DefectiveByLine("BODY-MAIN"))
	assert.EqualValues(t, 1, s.DefectiveByShop("BODY"))
}

func TestMarkCompletedNonDefectiveSkipsDefectCounters(t *testing.T) {
	s := NewStore()
	c := s.NewCar("SedanLX", nil, false, 100)
	s.MarkCompleted(c, "BODY", "BODY-MAIN", 500)

	assert.EqualValues(t, 1, s.CompletedByLine("BODY-MAIN"))
	assert.EqualValues(t, 0, s.DefectiveByLine("BODY-MAIN"))
}

func TestClearCompletedCollectionResetsOnlyNamedKeys(t *testing.T) {
	s := NewStore()
	c1 := s.NewCar("SedanLX", nil, true, 100)
	c2 := s.NewCar("Wagon", nil, false, 100)
	s.MarkCompleted(c1, "BODY", "BODY-MAIN", 500)
	s.MarkCompleted(c2, "PAINT", "PAINT-MAIN", 500)

	s.ClearCompletedCollection([]string{"BODY-MAIN"}, []string{"BODY"})

	assert.EqualValues(t, 0, s.CompletedByLine("BODY-MAIN"))
	assert.EqualValues(t, 0, s.DefectiveByLine("BODY-MAIN"))
	assert.EqualValues(t, 0, s.CompletedByShop("BODY"))
	assert.EqualValues(t, 1, s.CompletedByLine("PAINT-MAIN"))
	assert.EqualValues(t, 1, s.CompletedByShop("PAINT"))
}

func TestResetClearsEverything(t *testing.T) {
	s := NewStore()
	c := s.NewCar("SedanLX", nil, false, 100)
	s.MarkCompleted(c, "BODY", "BODY-MAIN", 500)

	s.Reset()

	_, ok := s.Get(c.ID)
	assert.False(t, ok)
	assert.EqualValues(t, 0, s.CompletedByLine("BODY-MAIN"))
	assert.Empty(t, s.All())

	fresh := s.NewCar("SedanLX", nil, false, 600)
	assert.Equal(t, "C1", fresh.ID)
}

func TestAllReturnsEveryItem(t *testing.T) {
	s := NewStore()
	s.NewCar("SedanLX", nil, false, 100)
	s.NewPart("SEAT", "SEAT", 100)

	assert.Len(t, s.All(), 2)
}
