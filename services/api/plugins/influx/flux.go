package influx

import (
	"strconv"
	"strings"
	"time"
)

// StationTag is the tag carrying the station identifier.
const StationTag = "station"

var epoch = time.Unix(0, 0).UTC()

// FluxQuery describes one timeseries pass. An empty Aggregate returns stored
// points; otherwise points are windowed per day with the named Flux function.
type FluxQuery struct {
	Bucket      string
	Measurement string
	Stations    []string
	Fields      []string
	Aggregate   string
	Start       *time.Time
	Stop        *time.Time
}

// Flux renders q. Output tables are grouped per station and field and sorted
// by time, so each series arrives contiguously.
func Flux(q FluxQuery) string {
	start := epoch
	if q.Start != nil {
		start = q.Start.UTC()
	}
	stop := "now()"
	if q.Stop != nil {
		stop = q.Stop.UTC().Format(time.RFC3339)
	}

	var b strings.Builder
	b.WriteString("from(bucket: " + strconv.Quote(q.Bucket) + ")\n")
	b.WriteString("  |> range(start: " + start.Format(time.RFC3339) + ", stop: " + stop + ")\n")
	b.WriteString("  |> filter(fn: (r) => r._measurement == " + strconv.Quote(q.Measurement) + ")\n")
	if q.Stations != nil {
		b.WriteString("  |> filter(fn: (r) => " + anyOf("r."+StationTag, q.Stations) + ")\n")
	}
	if q.Fields != nil {
		b.WriteString("  |> filter(fn: (r) => " + anyOf("r._field", q.Fields) + ")\n")
	}
	if q.Aggregate != "" {
		b.WriteString("  |> aggregateWindow(every: 1d, fn: " + q.Aggregate + ", createEmpty: false)\n")
	}
	b.WriteString("  |> group(columns: [\"" + StationTag + "\", \"_field\"])\n")
	b.WriteString("  |> sort(columns: [\"_time\"])")
	return b.String()
}

func anyOf(column string, values []string) string {
	if len(values) == 0 {
		return "false"
	}
	terms := make([]string, 0, len(values))
	for _, v := range values {
		terms = append(terms, column+" == "+strconv.Quote(v))
	}
	return strings.Join(terms, " or ")
}
