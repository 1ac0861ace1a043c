package pointcloud

import (
	"math"
	"testing"
)

func TestParseInterpretation(t *testing.T) {
	tests := []struct {
		name     string
		expected Interpretation
	}{
		{"int8_t", Int8},
		{"uint8_t", Uint8},
		{"int16_t", Int16},
		{"UINT16_T", Uint16},
		{"int32_t", Int32},
		{"uint32_t", Uint32},
		{"int64_t", Int64},
		{"uint64_t", Uint64},
		{"double", Double},
		{"float", Float},
		{"float64", Double},
		{" uint16 ", Uint16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseInterpretation(tt.name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}

	for _, bad := range []string{"", "unknown", "int128"} {
		if _, err := ParseInterpretation(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestInterpretationSize(t *testing.T) {
	tests := []struct {
		interp   Interpretation
		expected int
	}{
		{Unknown, 0},
		{Int8, 1},
		{Uint8, 1},
		{Int16, 2},
		{Uint16, 2},
		{Int32, 4},
		{Uint32, 4},
		{Int64, 8},
		{Uint64, 8},
		{Double, 8},
		{Float, 4},
	}

	for _, tt := range tests {
		t.Run(tt.interp.String(), func(t *testing.T) {
			if result := tt.interp.Size(); result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestInterpretationEncode(t *testing.T) {
	tests := []struct {
		name      string
		interp    Interpretation
		in        float64
		expected  float64
		saturated bool
	}{
		{"int8 in range", Int8, -12, -12, false},
		{"int8 rounds half away", Int8, 2.5, 3, false},
		{"int8 rounds negative half away", Int8, -2.5, -3, false},
		{"int8 saturates high", Int8, 300, 127, true},
		{"int8 saturates low", Int8, -300, -128, true},
		{"uint8 saturates negative", Uint8, -1, 0, true},
		{"uint16 max", Uint16, 65535, 65535, false},
		{"uint16 saturates", Uint16, 70000, 65535, true},
		{"int32 rounds", Int32, 1234.4, 1234, false},
		{"uint32 saturates", Uint32, 1e12, math.MaxUint32, true},
		{"int64 saturates", Int64, 1e30, math.MaxInt64, true},
		{"uint64 saturates negative", Uint64, -5, 0, true},
		{"int16 NaN stores zero", Int16, math.NaN(), 0, true},
		{"double keeps fraction", Double, 1234.5, 1234.5, false},
		{"float keeps fraction", Float, 0.5, 0.5, false},
		{"float saturates", Float, 1e300, math.MaxFloat32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 8)
			saturated := tt.interp.encode(buf, tt.in)
			if saturated != tt.saturated {
				t.Errorf("expected saturated %v, got %v", tt.saturated, saturated)
			}
			if result := tt.interp.decode(buf); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
