package pointcloud

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
)

func TestPropertyDimensions(t *testing.T) {
	s := lidarSchema(t, nil)
	positions := propertyDimensions(s)
	expected := []int{2, 3, 4}
	if len(positions) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, positions)
	}
	for i := range expected {
		if positions[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, positions)
		}
	}
}

func TestEncodeProperties(t *testing.T) {
	values := []float64{10, 20, 1.5, 300, 2}
	data := encodeProperties(values, []int{2, 3, 4})
	if len(data) != 30 {
		t.Fatalf("expected 30 bytes, got %d", len(data))
	}
	for col, want := range []float64{1.5, 300, 2} {
		off := col * 10
		if got := binary.LittleEndian.Uint16(data[off:]); int(got) != col {
			t.Errorf("expected column %d, got %d", col, got)
		}
		if got := math.Float64frombits(binary.LittleEndian.Uint64(data[off+2:])); got != want {
			t.Errorf("expected %v, got %v", want, got)
		}
	}

	if encodeProperties(values, nil) != nil {
		t.Error("expected nil for no property columns")
	}
}

func TestReadPropertyValue(t *testing.T) {
	le := binary.LittleEndian
	tests := []struct {
		name     string
		data     []byte
		colType  flattypes.ColumnType
		expected float64
		numeric  bool
		n        int
	}{
		{"bool", []byte{1}, flattypes.ColumnTypeBool, 1, true, 1},
		{"byte", []byte{0xff}, flattypes.ColumnTypeByte, -1, true, 1},
		{"ubyte", []byte{0xff}, flattypes.ColumnTypeUByte, 255, true, 1},
		{"short", le.AppendUint16(nil, 0xfffe), flattypes.ColumnTypeShort, -2, true, 2},
		{"ushort", le.AppendUint16(nil, 500), flattypes.ColumnTypeUShort, 500, true, 2},
		{"int", le.AppendUint32(nil, 70000), flattypes.ColumnTypeInt, 70000, true, 4},
		{"ulong", le.AppendUint64(nil, 1<<40), flattypes.ColumnTypeULong, 1 << 40, true, 8},
		{"float", le.AppendUint32(nil, math.Float32bits(2.5)), flattypes.ColumnTypeFloat, 2.5, true, 4},
		{"double", le.AppendUint64(nil, math.Float64bits(-7.25)), flattypes.ColumnTypeDouble, -7.25, true, 8},
		{"string", []byte("abc\x00rest"), flattypes.ColumnTypeString, 0, false, 4},
		{"binary", append(le.AppendUint32(nil, 2), 9, 9), flattypes.ColumnTypeBinary, 0, false, 6},
		{"short data", []byte{1}, flattypes.ColumnTypeDouble, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, numeric, n := readPropertyValue(tt.data, tt.colType)
			if value != tt.expected || numeric != tt.numeric || n != tt.n {
				t.Errorf("expected (%v, %v, %d), got (%v, %v, %d)",
					tt.expected, tt.numeric, tt.n, value, numeric, n)
			}
		})
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected float64
		ok       bool
	}{
		{"float64", 3.14, 3.14, true},
		{"float32", float32(2.5), 2.5, true},
		{"int", 42, 42, true},
		{"uint16", uint16(7), 7, true},
		{"bool", true, 1, true},
		{"json number", json.Number("12.5"), 12.5, true},
		{"bad json number", json.Number("x"), 0, false},
		{"string", "hello", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := toFloat64(tt.value)
			if result != tt.expected || ok != tt.ok {
				t.Errorf("expected (%v, %v), got (%v, %v)", tt.expected, tt.ok, result, ok)
			}
		})
	}
}
