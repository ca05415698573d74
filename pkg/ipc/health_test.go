package ipc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heptiolabs/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacilityCheck(t *testing.T) {
	requireSysvIPC(t)
	assert.NoError(t, FacilityCheck()())
}

func TestSegmentCheck(t *testing.T) {
	requireSysvIPC(t)

	key := testKey()
	assert.Error(t, SegmentCheck(key)())

	seg, err := CreateSegment(key, 4096)
	require.NoError(t, err)
	assert.NoError(t, SegmentCheck(key)())

	seg.Dispose()
	assert.Error(t, SegmentCheck(key)())
}

func TestChecksOnHealthcheckHandler(t *testing.T) {
	requireSysvIPC(t)

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("sysv-ipc", FacilityCheck())

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()
	health.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
