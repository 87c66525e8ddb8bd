package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  ConfidenceLevel
	}{
		{0, LevelBasic},
		{29, LevelBasic},
		{30, LevelGrowing},
		{49, LevelGrowing},
		{50, LevelStrong},
		{69, LevelStrong},
		{70, LevelComprehensive},
		{89, LevelComprehensive},
		{90, LevelComplete},
		{100, LevelComplete},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestHedgeForScore(t *testing.T) {
	tests := []struct {
		score int
		want  HedgeLevel
	}{
		{0, HedgeHigh},
		{29, HedgeHigh},
		{30, HedgeMedium},
		{49, HedgeMedium},
		{50, HedgeLow},
		{69, HedgeLow},
		{70, HedgeNone},
		{100, HedgeNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HedgeForScore(tt.score), "score %d", tt.score)
	}
}

func TestConnectionState(t *testing.T) {
	var nilState ConnectionState
	assert.False(t, nilState.Connected("pos"))

	state := ConnectionState{"pos": true, "weather": false}
	assert.True(t, state.Connected("pos"))
	assert.False(t, state.Connected("weather"))
	assert.False(t, state.Connected("labor"))
}
