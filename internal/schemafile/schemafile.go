// Package schemafile reads point-cloud schema definitions from YAML.
//
// A document looks like:
//
//	pcid: 1
//	srid: 4326
//	compression: dimensional
//	dimensions:
//	  - name: X
//	    interpretation: int32_t
//	    scale: 0.01
//	  - name: Intensity
//	    interpretation: uint16_t
//
// Dimensions are packed in document order.
package schemafile

import (
	"fmt"
	"os"

	pointcloud "github.com/tingold/orb-pointcloud"
	"gopkg.in/yaml.v2"
)

// Document is the YAML form of a schema.
type Document struct {
	PCID        uint32      `yaml:"pcid"`
	SRID        uint32      `yaml:"srid"`
	Compression string      `yaml:"compression"`
	Dimensions  []Dimension `yaml:"dimensions"`
}

// Dimension is the YAML form of one dimension. A zero scale means 1.
type Dimension struct {
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description"`
	Interpretation string  `yaml:"interpretation"`
	Scale          float64 `yaml:"scale"`
	Offset         float64 `yaml:"offset"`
}

// Parse decodes a YAML document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return &doc, nil
}

// Load reads a YAML file and builds its schema.
func Load(path string, opts *pointcloud.Options) (*pointcloud.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return doc.Schema(opts)
}

// Schema builds the schema described by the document.
func (doc *Document) Schema(opts *pointcloud.Options) (*pointcloud.Schema, error) {
	compression, err := pointcloud.ParseCompression(doc.Compression)
	if err != nil {
		return nil, err
	}

	dims := make([]pointcloud.Dimension, len(doc.Dimensions))
	for i, d := range doc.Dimensions {
		interp, err := pointcloud.ParseInterpretation(d.Interpretation)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", d.Name, err)
		}
		dims[i] = pointcloud.Dimension{
			Name:           d.Name,
			Description:    d.Description,
			Interpretation: interp,
			Scale:          d.Scale,
			Offset:         d.Offset,
		}
	}

	return pointcloud.NewSchema(pointcloud.SchemaInfo{
		PCID:        doc.PCID,
		SRID:        doc.SRID,
		Compression: compression,
	}, pointcloud.PackDimensions(dims), opts)
}
