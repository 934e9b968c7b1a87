package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFunctionCallRequest(t *testing.T) {
	req, err := ParseFunctionCallRequest([]byte(`{"type":"FunctionCallRequest","functions":[
		{"id":"f1","name":"get_account_info","arguments":"{}","client_side":true},
		{"id":"f2","name":"get_account_info","arguments":{"account_number":"1"}},
		{"id":3,"arguments":"{}","name":false},
		"nonsense"]}`))
	require.NoError(t, err)
	require.Len(t, req.Functions, 4)

	assert.Equal(t, FunctionCall{ID: "f1", Name: "get_account_info", Arguments: "{}"}, req.Functions[0])

	assert.Equal(t, "f2", req.Functions[1].ID)
	assert.Equal(t, "get_account_info", req.Functions[1].Name)
	assert.Error(t, req.Functions[1].DecodeErr)

	assert.Equal(t, "3", req.Functions[2].ID)
	assert.Empty(t, req.Functions[2].Name)
	assert.Error(t, req.Functions[2].DecodeErr)

	assert.Empty(t, req.Functions[3].ID)
	assert.Error(t, req.Functions[3].DecodeErr)
}

func TestParseFunctionCallRequest_BadEnvelope(t *testing.T) {
	_, err := ParseFunctionCallRequest([]byte(`{"type":"FunctionCallRequest","functions":"x"}`))
	assert.Error(t, err)

	_, err = ParseFunctionCallRequest([]byte(`{`))
	assert.Error(t, err)
}
