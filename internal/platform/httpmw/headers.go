package httpmw

const (
	headerCorrelationID = "X-Correlation-ID"
	headerUserAgent     = "User-Agent"
)
