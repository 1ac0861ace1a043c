package pointcloud

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// propertyDimensions returns the positions of the dimensions stored as
// FlatGeobuf properties: every dimension except X and Y, in position order.
// Column i of the file holds dimension propertyDimensions(s)[i].
func propertyDimensions(s *Schema) []int {
	positions := make([]int, 0, len(s.dims))
	for i := range s.dims {
		if i == s.xPosition || i == s.yPosition {
			continue
		}
		positions = append(positions, i)
	}
	return positions
}

// schemaColumns builds one Double column per property dimension. Values are
// written scaled, so the column type does not follow the interpretation.
func schemaColumns(s *Schema, positions []int, builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(positions))
	for _, pos := range positions {
		d := s.dims[pos]
		col := writer.NewColumn(builder)
		col.SetName(d.Name)
		col.SetTitle(d.Name) // Set title to match name for JS library compatibility
		col.SetType(flattypes.ColumnTypeDouble)
		col.SetNullable(false)
		columns = append(columns, col)
	}
	return columns
}

// encodeProperties encodes the property dimensions of one point.
// The format is: [2-byte column index][8-byte double]... per column.
func encodeProperties(values []float64, positions []int) []byte {
	if len(positions) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(positions)*10)
	for col, pos := range positions {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(col))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(values[pos]))
	}
	return buf
}

// decodeProperties decodes FlatGeobuf binary properties into numeric values
// keyed by column name. Non-numeric columns are skipped.
func decodeProperties(data []byte, header *flattypes.Header) map[string]float64 {
	if len(data) == 0 || header == nil {
		return nil
	}

	props := make(map[string]float64)
	offset := 0

	for offset+2 <= len(data) {
		colIndex := binary.LittleEndian.Uint16(data[offset : offset+2])
		offset += 2

		if int(colIndex) >= header.ColumnsLength() {
			break
		}
		var col flattypes.Column
		if !header.Columns(&col, int(colIndex)) {
			break
		}

		value, numeric, n := readPropertyValue(data[offset:], col.Type())
		if n == 0 {
			break
		}
		offset += n

		if numeric {
			props[string(col.Name())] = value
		}
	}

	return props
}

// readPropertyValue reads one property value. It returns the value as a
// float64 when the column is numeric or boolean, and the number of bytes
// consumed (0 when data is too short).
func readPropertyValue(data []byte, colType flattypes.ColumnType) (float64, bool, int) {
	le := binary.LittleEndian
	switch colType {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return 0, false, 0
		}
		if data[0] != 0 {
			return 1, true, 1
		}
		return 0, true, 1

	case flattypes.ColumnTypeByte:
		if len(data) < 1 {
			return 0, false, 0
		}
		return float64(int8(data[0])), true, 1

	case flattypes.ColumnTypeUByte:
		if len(data) < 1 {
			return 0, false, 0
		}
		return float64(data[0]), true, 1

	case flattypes.ColumnTypeShort:
		if len(data) < 2 {
			return 0, false, 0
		}
		return float64(int16(le.Uint16(data))), true, 2

	case flattypes.ColumnTypeUShort:
		if len(data) < 2 {
			return 0, false, 0
		}
		return float64(le.Uint16(data)), true, 2

	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return 0, false, 0
		}
		return float64(int32(le.Uint32(data))), true, 4

	case flattypes.ColumnTypeUInt:
		if len(data) < 4 {
			return 0, false, 0
		}
		return float64(le.Uint32(data)), true, 4

	case flattypes.ColumnTypeLong:
		if len(data) < 8 {
			return 0, false, 0
		}
		return float64(int64(le.Uint64(data))), true, 8

	case flattypes.ColumnTypeULong:
		if len(data) < 8 {
			return 0, false, 0
		}
		return float64(le.Uint64(data)), true, 8

	case flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return 0, false, 0
		}
		return float64(math.Float32frombits(le.Uint32(data))), true, 4

	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return 0, false, 0
		}
		return math.Float64frombits(le.Uint64(data)), true, 8

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime, flattypes.ColumnTypeJson:
		// null terminated
		nullIdx := bytes.IndexByte(data, 0)
		if nullIdx == -1 {
			return 0, false, len(data)
		}
		return 0, false, nullIdx + 1

	case flattypes.ColumnTypeBinary:
		if len(data) < 4 {
			return 0, false, 0
		}
		length := int(le.Uint32(data))
		if len(data) < 4+length {
			return 0, false, 0
		}
		return 0, false, 4 + length

	default:
		return 0, false, 0
	}
}

// toFloat64 converts a decoded GeoJSON property to a float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
