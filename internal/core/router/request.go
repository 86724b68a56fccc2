package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ValidationError rejects a request body before any feature is processed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type crsEnvelope struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type collectionBody struct {
	Type     string            `json:"type"`
	CRS      *crsEnvelope      `json:"crs"`
	Features []json.RawMessage `json:"features"`
}

type featureHead struct {
	Type     string `json:"type"`
	Geometry *struct {
		Type        string            `json:"type"`
		Coordinates []json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

// featureInput is one validated polygon feature.
type featureInput struct {
	Polygon    orb.Polygon
	Properties map[string]any
}

// echoed back on each result when present
var passthroughProps = []string{"field_name", "farm_id", "pk"}

// decodeCollection validates a polygon FeatureCollection with a named CRS.
func decodeCollection(body []byte) (string, []featureInput, error) {
	var fc collectionBody
	if err := json.Unmarshal(body, &fc); err != nil {
		return "", nil, err
	}
	if fc.Type != "FeatureCollection" {
		return "", nil, invalid("type", "expected FeatureCollection, got %q", fc.Type)
	}
	if fc.CRS == nil || strings.TrimSpace(fc.CRS.Properties.Name) == "" {
		return "", nil, invalid("crs.properties.name", "a named CRS is required")
	}
	// an empty list is a valid collection; a missing one is not
	if fc.Features == nil {
		return "", nil, invalid("features", "features is required")
	}

	out := make([]featureInput, 0, len(fc.Features))
	for i, raw := range fc.Features {
		fi, err := decodeFeature(raw)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("features[%d].%s", i, ve.Field)
				return "", nil, ve
			}
			return "", nil, invalid(fmt.Sprintf("features[%d]", i), "%v", err)
		}
		out = append(out, fi)
	}
	return strings.TrimSpace(fc.CRS.Properties.Name), out, nil
}

func decodeFeature(raw json.RawMessage) (featureInput, error) {
	var head featureHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return featureInput{}, invalid("", "%v", err)
	}
	if head.Type != "Feature" {
		return featureInput{}, invalid("type", "expected Feature, got %q", head.Type)
	}
	if head.Geometry == nil {
		return featureInput{}, invalid("geometry", "missing")
	}
	if head.Geometry.Type != "Polygon" {
		return featureInput{}, invalid("geometry.type", "expected a Polygon, got %q", head.Geometry.Type)
	}
	cs := head.Geometry.Coordinates
	if len(cs) == 0 || !bytes.HasPrefix(bytes.TrimSpace(cs[0]), []byte("[")) {
		return featureInput{}, invalid("geometry.coordinates", "expected a list of coordinate rings")
	}

	f, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		return featureInput{}, invalid("geometry", "%v", err)
	}
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok {
		return featureInput{}, invalid("geometry.type", "expected a Polygon, got %s", f.Geometry.GeoJSONType())
	}

	var props map[string]any
	for _, k := range passthroughProps {
		if v, ok := f.Properties[k]; ok && v != nil {
			if props == nil {
				props = map[string]any{}
			}
			props[k] = v
		}
	}
	return featureInput{Polygon: poly, Properties: props}, nil
}
