package simulator

// Sample is one telemetry point in the ingest wire format.
type Sample struct {
	TS         string  `json:"ts"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	SpeedMPS   float64 `json:"speed_mps"`
	HeadingDeg float64 `json:"heading_deg"`
	HDOP       float64 `json:"hdop"`
	Accel      Accel   `json:"accel"`
	ScreenOn   bool    `json:"screen_on"`
}

// Accel is a device-frame accelerometer reading in m/s^2.
type Accel struct {
	AX float64 `json:"ax"`
	AY float64 `json:"ay"`
	AZ float64 `json:"az"`
}

// IngestRequest is the body of POST /ingest.
type IngestRequest struct {
	UserID   string   `json:"userId"`
	DeviceID string   `json:"deviceId"`
	Samples  []Sample `json:"samples"`
}

// IngestResponse is the body returned by POST /ingest.
type IngestResponse struct {
	TripID          string `json:"tripId"`
	SamplesIngested int    `json:"samplesIngested"`
}

// FinalizeResponse is the body returned by POST /finalize.
type FinalizeResponse struct {
	Finalized int      `json:"finalized"`
	Errors    []string `json:"errors"`
}

// DriverScore is the body returned by GET /drivers/{userId}/score.
type DriverScore struct {
	UserID          string  `json:"user_id"`
	Day             string  `json:"day"`
	RDS             int     `json:"rds"`
	TripsCount      int     `json:"trips_count"`
	TotalDistanceKm float64 `json:"total_distance_km"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
