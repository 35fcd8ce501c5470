package pagou

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatusCodes(t *testing.T) {
	spec := &RequestSpec{Method: "GET", Path: "/v2/transactions", RequestID: "req_local"}
	cases := []struct {
		status int
		want   Kind
	}{
		{401, KindAuthentication},
		{403, KindAuthentication},
		{404, KindNotFound},
		{400, KindInvalidRequest},
		{409, KindInvalidRequest},
		{422, KindInvalidRequest},
		{402, KindInvalidRequest},
		{429, KindRateLimit},
		{500, KindServer},
		{502, KindServer},
		{503, KindServer},
	}

	for _, c := range cases {
		e := classify(spec, &attemptOutcome{status: c.status, header: http.Header{}})
		assert.Equal(t, c.want, e.Kind, "status %d", c.status)
		assert.Equal(t, c.status, e.StatusCode)
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	spec := &RequestSpec{Method: "GET", Path: "/v2/transactions", RequestID: "req_local"}
	cause := &net.DNSError{Name: "api.pagou.ai", Err: "no such host"}

	e := classify(spec, &attemptOutcome{err: cause, cause: causeDNS})

	assert.Equal(t, KindNetwork, e.Kind)
	assert.Equal(t, "req_local", e.RequestID)
	assert.ErrorAs(t, e, &cause)
}

func TestClassifyExtractsProviderContext(t *testing.T) {
	spec := &RequestSpec{Method: "POST", Path: "/v2/transactions", RequestID: "req_local"}
	body := []byte(`{"success":false,"requestId":"req_srv","error":{"code":"card_declined","message":"card was declined"}}`)

	e := classify(spec, &attemptOutcome{status: 422, header: http.Header{}, body: body})

	require.Equal(t, KindInvalidRequest, e.Kind)
	assert.Equal(t, "card_declined", e.ProviderCode)
	assert.Equal(t, "card was declined", e.Message)
	assert.Equal(t, "req_srv", e.RequestID)
}

func TestRequestIDPrecedence(t *testing.T) {
	spec := &RequestSpec{RequestID: "req_local"}
	body := &errorBody{RequestID: "req_body"}
	header := http.Header{}
	header.Set("X-Request-Id", "req_header")

	assert.Equal(t, "req_header", requestIDFrom(spec, header, body))
	assert.Equal(t, "req_body", requestIDFrom(spec, http.Header{}, body))
	assert.Equal(t, "req_local", requestIDFrom(spec, http.Header{}, &errorBody{}))
	assert.Equal(t, "req_local", requestIDFrom(spec, nil, nil))
}

func TestClassifyFallbackMessage(t *testing.T) {
	spec := &RequestSpec{RequestID: "req_local"}
	e := classify(spec, &attemptOutcome{status: 503, header: http.Header{}, body: []byte("oops")})

	assert.Equal(t, KindServer, e.Kind)
	assert.Equal(t, http.StatusText(503), e.Message)
}

func TestTransportCauseOf(t *testing.T) {
	cases := []struct {
		err  error
		want transportCause
	}{
		{context.Canceled, causeAborted},
		{context.DeadlineExceeded, causeAborted},
		{&net.DNSError{Name: "x"}, causeDNS},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, causeConnect},
		{&net.OpError{Op: "read", Err: errors.New("reset")}, causeProtocol},
		{errors.New("malformed chunk"), causeProtocol},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, transportCauseOf(c.err), "%v", c.err)
	}
}
