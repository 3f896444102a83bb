package siata

import (
	"context"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CurrentResponse models the JSON payload returned by the SIATA current feed.
type CurrentResponse struct {
	Stations []Station `json:"estaciones"`
	Network  string    `json:"red"`
}

// Station represents a single station entry from the current feed.
type Station struct {
	Barrio    string   `json:"barrio"`
	City      string   `json:"ciudad"`
	Code      int      `json:"codigo"`
	Comuna    string   `json:"comuna"`
	Latitude  float64  `json:"latitud"`
	Longitude float64  `json:"longitud"`
	Name      string   `json:"nombre"`
	Subbasin  string   `json:"subcuenca"`
	Value     *float64 `json:"valor"`
}

// FetchCurrentStations retrieves the current SIATA stations payload.
func FetchCurrentStations(ctx context.Context, client *http.Client, url string) (CurrentResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CurrentResponse{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return CurrentResponse{}, fmt.Errorf("request current feed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return CurrentResponse{}, fmt.Errorf("current feed %s: %w", resp.Status, synthesis.ErrInvalidCredentials)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return CurrentResponse{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload CurrentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CurrentResponse{}, fmt.Errorf("decode payload: %w", err)
	}

	return payload, nil
}

// NormalizeValue cleans raw sensor values; -999 sentinel -> nil.
func NormalizeValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v <= -900 {
		return nil
	}
	val := *v
	return &val
}
