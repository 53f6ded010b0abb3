package roadinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrRouteUnavailable = errors.New("road conditions unavailable")

// Conditions describes the road ahead of the vehicle: posted limit and
// surface hints from OpenStreetMap, wetness from the weather provider.
type Conditions struct {
	SpeedLimit string  `json:"speed_limit"`
	TempC      int     `json:"temp_c"`
	Condition  string  `json:"condition"`
	IsWet      bool    `json:"is_wet"`
	Slope      string  `json:"slope"`
	HasPothole bool    `json:"has_pothole"`
	HasBumper  bool    `json:"has_bumper"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// lookAheadM is the radius queried around the fix.
const lookAheadM = 100

type Client struct {
	http        *http.Client
	overpassURL string
	weatherURL  string
	weatherKey  string
}

func NewClient(overpassURL, weatherURL, weatherKey string) *Client {
	return &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		overpassURL: overpassURL,
		weatherURL:  weatherURL,
		weatherKey:  weatherKey,
	}
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

type weatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Next100m queries both providers for the road segment around the fix. Both
// must answer; a failure on either side reports ErrRouteUnavailable.
func (c *Client) Next100m(ctx context.Context, lat, lng float64) (Conditions, error) {
	type result struct {
		tags    map[string]string
		weather weatherResponse
		err     error
	}

	osmCh := make(chan result, 1)
	wxCh := make(chan result, 1)

	go func() {
		tags, err := c.fetchHighwayTags(ctx, lat, lng)
		osmCh <- result{tags: tags, err: err}
	}()
	go func() {
		wx, err := c.fetchWeather(ctx, lat, lng)
		wxCh <- result{weather: wx, err: err}
	}()

	osm, wx := <-osmCh, <-wxCh
	if osm.err != nil {
		return Conditions{}, fmt.Errorf("%w: %v", ErrRouteUnavailable, osm.err)
	}
	if wx.err != nil {
		return Conditions{}, fmt.Errorf("%w: %v", ErrRouteUnavailable, wx.err)
	}

	tags := osm.tags
	condition := ""
	if len(wx.weather.Weather) > 0 {
		condition = wx.weather.Weather[0].Main
	}

	return Conditions{
		SpeedLimit: tagOr(tags, "maxspeed", "50"),
		TempC:      int(math.Round(wx.weather.Main.Temp)),
		Condition:  condition,
		IsWet:      strings.Contains(strings.ToLower(condition), "rain"),
		Slope:      tagOr(tags, "incline", "0.0"),
		HasPothole: tags["smoothness"] == "very_bad" || tags["surface"] == "unpaved",
		HasBumper:  tags["traffic_calming"] == "bump" || tags["hazard"] == "speed_bump",
		Latitude:   lat,
		Longitude:  lng,
	}, nil
}

func (c *Client) fetchHighwayTags(ctx context.Context, lat, lng float64) (map[string]string, error) {
	query := fmt.Sprintf(`[out:json];way(around:%d, %f, %f)["highway"];out tags;`, lookAheadM, lat, lng)
	u := c.overpassURL + "?data=" + url.QueryEscape(query)

	var out overpassResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	if len(out.Elements) == 0 || out.Elements[0].Tags == nil {
		return map[string]string{}, nil
	}
	return out.Elements[0].Tags, nil
}

func (c *Client) fetchWeather(ctx context.Context, lat, lng float64) (weatherResponse, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))
	params.Set("appid", c.weatherKey)
	params.Set("units", "metric")

	var out weatherResponse
	err := c.getJSON(ctx, c.weatherURL+"?"+params.Encode(), &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func tagOr(tags map[string]string, key, fallback string) string {
	if v := tags[key]; v != "" {
		return v
	}
	return fallback
}
