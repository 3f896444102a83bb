package influx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

// Records is a cursor over Flux result records. *api.QueryTableResult implements it.
type Records interface {
	Next() bool
	Record() *query.FluxRecord
	Err() error
	Close() error
}

// Runner executes Flux queries.
type Runner interface {
	Query(ctx context.Context, flux string) (Records, error)
}

// Client runs Flux queries against one InfluxDB organisation.
type Client struct {
	client influxdb2.Client
	org    string
}

// Connect creates an InfluxDB client. The connection is not checked until the first query.
func Connect(url, token, org string) *Client {
	return &Client{client: influxdb2.NewClient(url, token), org: org}
}

// Query implements Runner.
func (c *Client) Query(ctx context.Context, flux string) (Records, error) {
	result, err := c.client.QueryAPI(c.org).Query(ctx, flux)
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// Close releases the client's idle connections.
func (c *Client) Close() {
	c.client.Close()
}

// classify marks rejected tokens as credential failures.
func classify(err error) error {
	var herr *influxhttp.Error
	if errors.As(err, &herr) && (herr.StatusCode == http.StatusUnauthorized || herr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("influxdb query: %w: %v", synthesis.ErrInvalidCredentials, err)
	}
	return fmt.Errorf("influxdb query: %w", err)
}
