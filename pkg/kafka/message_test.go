package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{
			"tenant_id": "t1",
			"platform": "instagram",
			"source_id": "post-123",
			"source_kind": "organic",
			"data": {"url": "https://instagram.com/p/abc/", "impressions": 1000}
		}`),
	}

	require.NoError(t, msg.ParseRecord())
	assert.Equal(t, "t1", msg.GetTenantID())
	assert.Equal(t, "instagram", msg.GetPlatform())
	assert.Equal(t, "post-123", msg.GetSourceID())
	assert.Equal(t, "organic", msg.Record.SourceKind)
	assert.ElementsMatch(t, []string{"url", "impressions"}, msg.DataColumns())
}

func TestParseRecord_Invalid(t *testing.T) {
	msg := &IncomingMessage{Value: []byte("not json")}
	assert.Error(t, msg.ParseRecord())
}

func TestGetTenantID_FallsBackToHeader(t *testing.T) {
	msg := &IncomingMessage{
		Value:   []byte(`{"platform": "tiktok", "source_id": "x", "data": {}}`),
		Headers: map[string]string{"tenant_id": "from-header"},
	}

	require.NoError(t, msg.ParseRecord())
	assert.Equal(t, "from-header", msg.GetTenantID())
}

func TestGetData(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{"tenant_id": "t1", "platform": "p", "source_id": "s", "data": {"spend": 12.5}}`),
	}
	require.NoError(t, msg.ParseRecord())

	data := msg.GetData()
	assert.JSONEq(t, `{"spend": 12.5}`, string(data))
}

func TestAccessorsWithoutParsedRecord(t *testing.T) {
	msg := &IncomingMessage{}

	assert.Empty(t, msg.GetPlatform())
	assert.Empty(t, msg.GetSourceID())
	assert.Nil(t, msg.GetData())
	assert.Nil(t, msg.DataColumns())
}
