// Package telemetry encodes snapshots for upload.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
)

var errNilSnapshot = errors.New("snapshot must be provided")

// Encode renders snapshot as a JSON object:
//
//	{"device_id", "sequence", "timestamp", "temperature_c", "humidity_pct",
//	 "raw": {"temperature", "humidity"}}
//
// Raw values are the sensor units, tenths of a degree and of a percent.
func Encode(deviceID string, snapshot *climate.Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, errNilSnapshot
	}

	payload, err := structpb.NewStruct(map[string]any{
		"device_id":     deviceID,
		"sequence":      float64(snapshot.Sequence),
		"timestamp":     snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
		"temperature_c": snapshot.Reading.Celsius(),
		"humidity_pct":  snapshot.Reading.Percent(),
		"raw": map[string]any{
			"temperature": int64(snapshot.Reading.Temperature),
			"humidity":    int64(snapshot.Reading.Humidity),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}

	data, err := protojson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return data, nil
}
