package weather

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "https://history.example.test/data/2.5/history/city"

func setupHTTPMock(t *testing.T) *http.Client {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func testQuery() Query {
	start := time.Date(2024, 11, 3, 7, 0, 0, 0, time.UTC)
	return Query{Lat: 52.3676, Lon: 4.9041, Start: start, End: start.Add(2 * time.Hour)}
}

func historyResponse() string {
	return `{
		"cod": "200",
		"list": [
			{"dt": 1730617200, "weather": [{"id": 500, "main": "Rain", "description": "light rain"}]},
			{"dt": 1730620800, "weather": [{"id": 800, "main": "Clear", "description": "clear sky"}]},
			{"dt": 1730624400, "weather": [{"id": 501, "main": "Rain", "description": "moderate rain"}, {"id": 741, "main": "Fog", "description": "fog"}]}
		]
	}`
}

func TestOpenWeather_HistoricalWeather_Success(t *testing.T) {
	client := setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodGet, `=~^https://history\.example\.test/data/2\.5/history/city`,
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			assert.Equal(t, "test-key", q.Get("appid"))
			assert.Equal(t, "hour", q.Get("type"))
			assert.Equal(t, "52.3676", q.Get("lat"))
			assert.Equal(t, "1730617200", q.Get("start"))
			assert.Equal(t, OpenWeatherUserAgent, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, historyResponse()), nil
		})

	p := NewOpenWeather(WithAPIKey("test-key"), WithEndpoint(testEndpoint), WithHTTPClient(client))
	conditions, err := p.HistoricalWeather(context.Background(), testQuery())

	require.NoError(t, err)
	require.Len(t, conditions, 2)

	assert.Equal(t, ConditionRain, conditions[0].Condition)
	assert.Equal(t, "light rain", conditions[0].Description)
	assert.Equal(t, time.Unix(1730617200, 0).UTC(), conditions[0].Start)
	assert.Equal(t, time.Unix(1730624400, 0).UTC(), conditions[0].End)

	assert.Equal(t, ConditionFog, conditions[1].Condition)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestOpenWeather_HistoricalWeather_HTTPError(t *testing.T) {
	client := setupHTTPMock(t)

	tests := []struct {
		name       string
		statusCode int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"not_found", http.StatusNotFound},
		{"too_many_requests", http.StatusTooManyRequests},
		{"internal_server_error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Reset()
			httpmock.RegisterResponder(http.MethodGet, `=~^https://history\.example\.test/`,
				httpmock.NewStringResponder(tt.statusCode, `{"cod": 401, "message": "error"}`))

			p := NewOpenWeather(WithAPIKey("test-key"), WithEndpoint(testEndpoint), WithHTTPClient(client))
			conditions, err := p.HistoricalWeather(context.Background(), testQuery())

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUpstream)
			assert.Nil(t, conditions)
		})
	}
}

func TestOpenWeather_HistoricalWeather_InvalidJSON(t *testing.T) {
	client := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, `=~^https://history\.example\.test/`,
		httpmock.NewStringResponder(http.StatusOK, `{"list": [`))

	p := NewOpenWeather(WithAPIKey("test-key"), WithEndpoint(testEndpoint), WithHTTPClient(client))
	_, err := p.HistoricalWeather(context.Background(), testQuery())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestOpenWeather_HistoricalWeather_NoAPIKey(t *testing.T) {
	p := NewOpenWeather()
	_, err := p.HistoricalWeather(context.Background(), testQuery())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{211, ConditionRain},
		{300, ConditionRain},
		{511, ConditionIce},
		{502, ConditionRain},
		{601, ConditionSnow},
		{701, ConditionFog},
		{800, ""},
		{804, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.id), "id %d", tt.id)
	}
}
