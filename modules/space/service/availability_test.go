package service

import (
	"testing"
	"time"

	"tripfluence-api/modules/space/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour int) time.Time {
	return time.Date(2026, 9, 16, hour, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"identical", 0, 2, 0, 2, true},
		{"contained", 0, 4, 1, 2, true},
		{"partial", 0, 2, 1, 3, true},
		{"adjacent", 0, 2, 2, 4, false},
		{"disjoint", 0, 2, 3, 4, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a1, a2 := at(tc.aStart), at(tc.aEnd)
			b1, b2 := at(tc.bStart), at(tc.bEnd)
			assert.Equal(t, tc.want, Overlaps(a1, a2, b1, b2))
			assert.Equal(t, tc.want, Overlaps(b1, b2, a1, a2), "overlap must be symmetric")
		})
	}
}

func TestCheckCapacity(t *testing.T) {
	space := &entity.Space{Capacity: 20}

	assert.Nil(t, CheckCapacity(space, 20), "capacity itself is allowed")
	assert.Nil(t, CheckCapacity(space, 1))

	appErr := CheckCapacity(space, 21)
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Message, "20")
	assert.Contains(t, appErr.Message, "21")
}

func TestCheckBlocksOpenByDefault(t *testing.T) {
	assert.Nil(t, CheckBlocks(nil, at(9), at(12)))
}

func TestCheckBlocksBlockedPeriod(t *testing.T) {
	blocks := []entity.AvailabilityBlock{
		{StartAt: at(10), EndAt: at(14), IsBlocked: true},
	}

	appErr := CheckBlocks(blocks, at(12), at(13))
	require.NotNil(t, appErr)

	// Adjacent to the blocked period is fine.
	assert.Nil(t, CheckBlocks(blocks, at(14), at(16)))
	assert.Nil(t, CheckBlocks(blocks, at(8), at(10)))
}

func TestCheckBlocksRequiresOpenIntersection(t *testing.T) {
	blocks := []entity.AvailabilityBlock{
		{StartAt: at(9), EndAt: at(17), IsBlocked: false},
	}

	assert.Nil(t, CheckBlocks(blocks, at(10), at(12)))

	appErr := CheckBlocks(blocks, at(18), at(20))
	require.NotNil(t, appErr)
}

func TestCheckBlocksMixed(t *testing.T) {
	blocks := []entity.AvailabilityBlock{
		{StartAt: at(9), EndAt: at(17), IsBlocked: false},
		{StartAt: at(12), EndAt: at(13), IsBlocked: true},
	}

	// Inside the open window but touching the blocked slice.
	appErr := CheckBlocks(blocks, at(11), at(13))
	require.NotNil(t, appErr)

	assert.Nil(t, CheckBlocks(blocks, at(13), at(15)))
}

func TestValidateWindow(t *testing.T) {
	assert.Nil(t, ValidateWindow(at(9), at(10)))
	assert.NotNil(t, ValidateWindow(at(10), at(10)))
	assert.NotNil(t, ValidateWindow(at(11), at(10)))
}
