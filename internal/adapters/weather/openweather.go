package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
)

const (
	OpenWeatherHistoryEndpoint = "https://history.openweathermap.org/data/2.5/history/city"
	OpenWeatherRequestTimeout  = 10 * time.Second
	OpenWeatherUserAgent       = "drivescore"
)

// OpenWeather condition group boundaries, see
// https://openweathermap.org/weather-conditions.
const (
	owmFreezingRain = 511
	owmSnowMin      = 600
	owmSnowMax      = 699
	owmAtmosMin     = 700
	owmAtmosMax     = 799
	owmRainMin      = 200
	owmRainMax      = 599
)

// openWeatherHistoryResponse is the subset of the history API response we
// read.
type openWeatherHistoryResponse struct {
	List []struct {
		Dt      int64 `json:"dt"`
		Weather []struct {
			ID          int    `json:"id"`
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// OpenWeather reads hourly history from the OpenWeather history API.
type OpenWeather struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// OpenWeatherOption applies a configuration option to OpenWeather.
type OpenWeatherOption func(*OpenWeather)

// WithAPIKey sets the API key.
func WithAPIKey(key string) OpenWeatherOption {
	return func(o *OpenWeather) {
		o.apiKey = key
	}
}

// WithEndpoint overrides the history endpoint.
func WithEndpoint(endpoint string) OpenWeatherOption {
	return func(o *OpenWeather) {
		o.endpoint = endpoint
	}
}

// WithRequestTimeout sets the HTTP client timeout.
func WithRequestTimeout(d time.Duration) OpenWeatherOption {
	return func(o *OpenWeather) {
		if d > 0 {
			o.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) OpenWeatherOption {
	return func(o *OpenWeather) {
		if c != nil {
			o.client = c
		}
	}
}

// NewOpenWeather creates an OpenWeather history provider.
func NewOpenWeather(opts ...OpenWeatherOption) *OpenWeather {
	o := &OpenWeather{
		client:   &http.Client{Timeout: OpenWeatherRequestTimeout},
		endpoint: OpenWeatherHistoryEndpoint,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HistoricalWeather returns one condition per adverse weather kind seen in
// the window, spanning the hours it was reported.
func (o *OpenWeather) HistoricalWeather(ctx context.Context, q Query) ([]model.WeatherCondition, error) {
	if o.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(q.Lon, 'f', 4, 64))
	params.Set("type", "hour")
	params.Set("start", strconv.FormatInt(q.Start.Unix(), 10))
	params.Set("end", strconv.FormatInt(q.End.Unix(), 10))
	params.Set("appid", o.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", OpenWeatherUserAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching weather history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var history openWeatherHistoryResponse
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, fmt.Errorf("error unmarshaling weather history: %w", err)
	}

	var (
		out   []model.WeatherCondition
		index = make(map[string]int)
	)
	for _, hour := range history.List {
		at := time.Unix(hour.Dt, 0).UTC()
		for _, w := range hour.Weather {
			cond := classify(w.ID)
			if cond == "" {
				continue
			}
			if i, ok := index[cond]; ok {
				if at.After(out[i].End) {
					out[i].End = at
				}
				continue
			}
			index[cond] = len(out)
			out = append(out, model.WeatherCondition{
				Condition:   cond,
				Description: w.Description,
				Start:       at,
				End:         at,
			})
		}
	}
	return out, nil
}

// classify maps an OpenWeather condition code to a penalized condition, or
// "" for weather that carries no penalty.
func classify(id int) string {
	switch {
	case id == owmFreezingRain:
		return ConditionIce
	case id >= owmSnowMin && id <= owmSnowMax:
		return ConditionSnow
	case id >= owmRainMin && id <= owmRainMax:
		return ConditionRain
	case id >= owmAtmosMin && id <= owmAtmosMax:
		return ConditionFog
	default:
		return ""
	}
}
