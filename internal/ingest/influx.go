package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/plantops/watering-advisor/internal/faults"
	"github.com/plantops/watering-advisor/internal/model"
)

// historyRange bounds how far back watering events are read. A year is far
// beyond anything the decision logic looks at.
const historyRange = "-365d"

// InfluxHistory reads watering events from an InfluxDB bucket where each
// event is a point with an amount_ml field, tagged by plant.
type InfluxHistory struct {
	queryAPI    api.QueryAPI
	bucket      string
	measurement string
	plant       string
}

func NewInfluxHistory(url, token, org, bucket, measurement, plant string) (*InfluxHistory, error) {
	if url == "" || token == "" || org == "" || bucket == "" {
		return nil, faults.Configuration("influx config incomplete")
	}
	client := influxdb2.NewClient(url, token)
	return &InfluxHistory{
		queryAPI:    client.QueryAPI(org),
		bucket:      bucket,
		measurement: measurement,
		plant:       plant,
	}, nil
}

// Events queries the bucket, retrying with capped exponential backoff:
// history reads are idempotent, unlike the billed inference call.
func (h *InfluxHistory) Events(ctx context.Context) ([]model.WateringEvent, error) {
	flux := fmt.Sprintf(
		`from(bucket: %q) |> range(start: %s) |> filter(fn: (r) => r._measurement == %q and r._field == "amount_ml" and r.plant == %q)`,
		h.bucket, historyRange, h.measurement, h.plant)

	var events []model.WateringEvent
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	err := backoff.Retry(func() error {
		res, err := h.queryAPI.Query(ctx, flux)
		if err != nil {
			return err
		}
		var out []model.WateringEvent
		for res.Next() {
			rec := res.Record()
			amount := 0
			switch v := rec.Value().(type) {
			case float64:
				amount = int(v)
			case int64:
				amount = int(v)
			}
			a := amount
			out = append(out, model.WateringEvent{
				// Fixed-width UTC format keeps lexicographic order
				// chronological, which LastWatering relies on.
				Date:     rec.Time().UTC().Format("2006-01-02T15:04:05Z"),
				AmountML: &a,
			})
		}
		if res.Err() != nil {
			return res.Err()
		}
		events = out
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 4), ctx))

	if err != nil {
		return nil, faults.Input("query watering history: %v", err)
	}
	return events, nil
}
