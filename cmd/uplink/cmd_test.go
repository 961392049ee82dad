package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/hostlink/uplink/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHeader(t *testing.T) {
	header, err := buildHeader(stringList{"X-Agent-Id: agent-1", "Accept:application/json", "X-Agent-Id: again"})
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-1", "again"}, header.Values("X-Agent-Id"))
	assert.Equal(t, "application/json", header.Get("Accept"))

	_, err = buildHeader(stringList{"no separator"})
	assert.ErrorIs(t, err, ErrInvalidHeader)
	_, err = buildHeader(stringList{": value"})
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestBuildBody(t *testing.T) {
	b, err := buildBody("")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = buildBody(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))

	file := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(file, []byte("from file"), 0600))
	b, err = buildBody("@" + file)
	require.NoError(t, err)
	assert.Equal(t, "from file", string(b))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "network_unavailable", errorKind(client.ErrNetworkUnavailable))
	assert.Equal(t, "unauthorized", errorKind(&client.HTTPError{StatusCode: http.StatusUnauthorized}))
	assert.Equal(t, "service_unavailable", errorKind(&client.HTTPError{StatusCode: http.StatusServiceUnavailable}))
	assert.Equal(t, "http_error", errorKind(&client.HTTPError{StatusCode: http.StatusNotFound}))
	assert.Equal(t, "response_too_short", errorKind(fmt.Errorf("read: %w", client.ErrResponseTooShort)))
	assert.Equal(t, "error", errorKind(os.ErrNotExist))
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResponse(&buf, http.Header{
		"X-B": {"2"},
		"X-A": {"1", "3"},
	}, "body"))
	assert.Equal(t, "X-A: 1\nX-A: 3\nX-B: 2\n\nbody\n", buf.String())
}
