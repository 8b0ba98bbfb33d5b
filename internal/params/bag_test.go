package params

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_FirstDefinedCandidateWins(t *testing.T) {
	tests := []struct {
		name string
		bag  Bag
		want any
	}{
		{"first present", Bag{"a": "x", "b": "y"}, "x"},
		{"zero is valid", Bag{"a": 0, "b": 5}, 0},
		{"false is valid", Bag{"a": false, "b": true}, false},
		{"falls through missing", Bag{"b": "y"}, "y"},
		{"skips empty string", Bag{"a": "", "b": "y"}, "y"},
		{"skips nil", Bag{"a": nil, "b": "y"}, "y"},
		{"default when absent", Bag{}, "def"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.bag, []string{"a", "b"}, "def"))
		})
	}
}

func TestInt(t *testing.T) {
	names := []string{"n"}
	assert.Equal(t, 12, Int(Bag{"n": "12abc"}, names, 7))
	assert.Equal(t, 3, Int(Bag{"n": "3.9"}, names, 7))
	assert.Equal(t, 3, Int(Bag{"n": 3.9}, names, 7))
	assert.Equal(t, -1, Int(Bag{"n": "-1"}, names, 7))
	assert.Equal(t, 0, Int(Bag{"n": 0}, names, 7))
	assert.Equal(t, 7, Int(Bag{"n": "abc"}, names, 7))
	assert.Equal(t, 7, Int(Bag{"n": true}, names, 7))
	assert.Equal(t, 42, Int(Bag{"n": json.Number("42")}, names, 7))
	assert.Equal(t, 7, Int(Bag{}, names, 7))
}

func TestFloat(t *testing.T) {
	names := []string{"f"}
	assert.InDelta(t, 7.5, Float(Bag{"f": "7.5 degrees"}, names, 1), 1e-9)
	assert.InDelta(t, 0.5, Float(Bag{"f": ".5"}, names, 1), 1e-9)
	assert.InDelta(t, 2, Float(Bag{"f": 2}, names, 1), 1e-9)
	assert.InDelta(t, 1, Float(Bag{"f": "none"}, names, 1), 1e-9)
}

func TestBool(t *testing.T) {
	names := []string{"b"}
	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"Yes", true},
		{"TRUE", true},
		{"no", false},
		{"False", false},
		{1, true},
		{0, false},
		{"anything", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bool(Bag{"b": tt.in}, names, !tt.want), "input %v", tt.in)
	}
	assert.True(t, Bool(Bag{}, names, true))
}

func TestStrings(t *testing.T) {
	names := []string{"s"}
	assert.Equal(t, []string{"a.star", "b.star"}, Strings(Bag{"s": "a.star, b.star"}, names))
	assert.Equal(t, []string{"a", "b"}, Strings(Bag{"s": []any{"a", "", "b"}}, names))
	assert.Nil(t, Strings(Bag{}, names))
}
