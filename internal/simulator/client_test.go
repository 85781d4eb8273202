package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://drivescore.test"

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(testBaseURL+"/", time.Second)
	httpmock.ActivateNonDefault(c.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestClient_Ingest(t *testing.T) {
	c := newMockedClient(t)

	var got IngestRequest
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/ingest",
		func(req *http.Request) (*http.Response, error) {
			if err := jsonDecode(req, &got); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
			}
			return httpmock.NewJsonResponse(http.StatusOK, IngestResponse{TripID: "trip-1", SamplesIngested: 1})
		})

	res, err := c.Ingest(context.Background(), IngestRequest{
		UserID:   "u1",
		DeviceID: "d1",
		Samples:  []Sample{{TS: "2024-05-01T12:00:00Z", Lat: 52, Lon: 4, SpeedMPS: 10}},
	})

	require.NoError(t, err)
	assert.Equal(t, "trip-1", res.TripID)
	assert.Equal(t, 1, res.SamplesIngested)
	assert.Equal(t, "d1", got.DeviceID)
	require.Len(t, got.Samples, 1)
	assert.InDelta(t, 10.0, got.Samples[0].SpeedMPS, 1e-9)
}

func TestClient_ErrorStatus(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/ingest",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"code":"bad_request","message":"samples must not be empty"}`))
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/finalize",
		httpmock.NewStringResponder(http.StatusInternalServerError, `oops`))

	_, err := c.Ingest(context.Background(), IngestRequest{UserID: "u1", DeviceID: "d1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "samples must not be empty")

	_, err = c.Finalize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "500")
}

func TestClient_DriverScore(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/drivers/sim-1/score",
		httpmock.NewStringResponder(http.StatusOK, `{"user_id":"sim-1","day":"2024-05-01","rds":812,"trips_count":2}`))

	score, err := c.DriverScore(context.Background(), "sim-1")

	require.NoError(t, err)
	assert.Equal(t, 812, score.RDS)
	assert.Equal(t, 2, score.TripsCount)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestClient_Health(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/healthz",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"status":"degraded","store":"down"}`))

	err := c.Health(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{BaseURL: testBaseURL})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func jsonDecode(req *http.Request, v any) error {
	defer func() { _ = req.Body.Close() }()
	return json.NewDecoder(req.Body).Decode(v)
}
