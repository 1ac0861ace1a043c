package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"math"
	"net/http"
	"path/filepath"

	"github.com/sirupsen/logrus"
	pointcloud "github.com/tingold/orb-pointcloud"
	"github.com/tingold/orb-pointcloud/internal/schemafile"
)

// defaultSchema is used when no -schema file is given.
const defaultSchema = `
pcid: 1
srid: 4326
compression: dimensional
dimensions:
  - name: X
    interpretation: int32_t
    scale: 0.0000001
  - name: Y
    interpretation: int32_t
    scale: 0.0000001
  - name: Z
    interpretation: int32_t
    scale: 0.01
  - name: Intensity
    interpretation: uint16_t
  - name: ReturnNumber
    interpretation: uint8_t
`

// syntheticPatch scatters n returns on a spiral around central Paris.
func syntheticPatch(s *pointcloud.Schema, n int) (*pointcloud.Patch, error) {
	p := pointcloud.MakePatch(s)
	for i := 0; i < n; i++ {
		pt, err := pointcloud.MakePoint(s)
		if err != nil {
			p.Free()
			return nil, err
		}
		angle := float64(i) * 0.3
		radius := 0.0005 * math.Sqrt(float64(i))
		values := map[string]float64{
			"X":            2.3522 + radius*math.Cos(angle),
			"Y":            48.8566 + radius*math.Sin(angle),
			"Z":            35 + 10*math.Sin(angle/4),
			"Intensity":    float64((i * 37) % 4096),
			"ReturnNumber": float64(1 + i%3),
		}
		for name, v := range values {
			// Schemas loaded from a file may not carry every dimension.
			if err := pt.SetDoubleByName(name, v); err != nil && !errors.Is(err, pointcloud.ErrNotFound) {
				pt.Free()
				p.Free()
				return nil, err
			}
		}
		err = p.AddPoint(pt)
		pt.Free()
		if err != nil {
			p.Free()
			return nil, err
		}
	}
	return p, nil
}

func main() {
	schemaPath := flag.String("schema", "", "YAML schema file")
	addr := flag.String("addr", ":8080", "listen address")
	npoints := flag.Int("points", 2000, "number of synthetic points")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}
	opts := &pointcloud.Options{Logger: log}

	var (
		schema *pointcloud.Schema
		err    error
	)
	if *schemaPath != "" {
		schema, err = schemafile.Load(*schemaPath, opts)
	} else {
		var doc *schemafile.Document
		doc, err = schemafile.Parse([]byte(defaultSchema))
		if err == nil {
			schema, err = doc.Schema(opts)
		}
	}
	if err != nil {
		log.WithError(err).Fatal("Failed to load schema")
	}

	patch, err := syntheticPatch(schema, *npoints)
	if err != nil {
		log.WithError(err).Fatal("Failed to build patch")
	}

	// Encode every representation once up front
	var fgb bytes.Buffer
	err = pointcloud.WritePatch(&fgb, patch, &pointcloud.WriterOptions{
		Name:         "synthetic_lidar",
		Description:  "Synthetic LIDAR returns",
		IncludeIndex: true,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create FlatGeobuf")
	}

	fc, err := patch.FeatureCollection()
	if err != nil {
		log.WithError(err).Fatal("Failed to create GeoJSON")
	}
	geoJSON, err := json.Marshal(fc)
	if err != nil {
		log.WithError(err).Fatal("Failed to encode GeoJSON")
	}

	arrowData, err := patch.MarshalArrow()
	if err != nil {
		log.WithError(err).Fatal("Failed to create Arrow stream")
	}

	schemaJSON, err := schema.ToJSON()
	if err != nil {
		log.WithError(err).Fatal("Failed to encode schema")
	}

	wire, err := pointcloud.SerializePatch(patch)
	if err != nil {
		log.WithError(err).Fatal("Failed to serialize patch")
	}

	endpoints := map[string]struct {
		contentType string
		body        []byte
	}{
		"/patch.fgb":     {"application/octet-stream", fgb.Bytes()},
		"/patch.geojson": {"application/geo+json", geoJSON},
		"/patch.arrow":   {"application/vnd.apache.arrow.stream", arrowData},
		"/schema.json":   {"application/json", schemaJSON},
		"/patch.hex":     {"text/plain", []byte(pointcloud.HexFromBytes(wire))},
	}

	// Get the directory of the client files (one level up from server)
	clientDir := filepath.Join("..", "client")

	// Create a custom handler that checks for data endpoints first
	fs := http.FileServer(http.Dir(clientDir))
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if ep, ok := endpoints[r.URL.Path]; ok {
			w.Header().Set("Content-Type", ep.contentType)
			w.Header().Set("Access-Control-Allow-Origin", "*")
			if _, err := w.Write(ep.body); err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Warn("write failed")
			}
			return
		}
		// Serve static files for everything else
		fs.ServeHTTP(w, r)
	})

	log.WithFields(logrus.Fields{
		"addr":   *addr,
		"points": patch.NumPoints(),
		"bytes":  len(wire),
	}).Info("Server starting")
	log.Fatal(http.ListenAndServe(*addr, nil))
}
