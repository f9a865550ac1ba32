package checkin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hackgrid/hackgrid/internal/test_utils"
	"github.com/hackgrid/hackgrid/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (serviceFixture, *mux.Router) {
	f := setupServiceTest(t)
	handler := NewHandler(f.service)
	router := mux.NewRouter()
	router.HandleFunc("/api/schedule/event/{id}/checkin", handler.CheckIn).Methods("POST")
	router.HandleFunc("/api/schedule/event/{id}/checkin", handler.GetCheckins).Methods("GET")
	router.HandleFunc("/api/checkin/scans", handler.ScanHistory).Methods("GET")
	return f, router
}

func serve(router *mux.Router, req *http.Request, u *user.User) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, test_utils.RequestAs(req, u))
	return w
}

func checkinRequest(eventId string, code string) *http.Request {
	body, _ := json.Marshal(CheckinRequestDTO{Code: code})
	return httptest.NewRequest(http.MethodPost, "/api/schedule/event/"+eventId+"/checkin", bytes.NewReader(body))
}

func TestHandler_CheckIn(t *testing.T) {
	f, router := setupHandlerTest(t)
	eventId := f.eventId.String()

	w := serve(router, checkinRequest(eventId, "hacker-badge"), &f.volunteer)
	require.Equal(t, http.StatusOK, w.Code)
	var dto CheckinDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
	assert.Equal(t, ParticipantDTO{Uid: "hacker-uid", Username: "hacker", DisplayName: "hacker"}, dto.Participant)
	assert.True(t, dto.CheckedInAt.Equal(f.clock.Now()))

	assert.Equal(t, http.StatusConflict, serve(router, checkinRequest(eventId, "hacker-badge"), &f.volunteer).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, serve(router, checkinRequest(eventId, "nobody"), &f.volunteer).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, checkinRequest(uuid.NewString(), "hacker-badge"), &f.volunteer).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, checkinRequest("not-a-uuid", "hacker-badge"), &f.volunteer).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, checkinRequest(eventId, "hacker-badge"), &f.participant).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, checkinRequest(eventId, "hacker-badge"), nil).Code)

	badBody := httptest.NewRequest(http.MethodPost, "/api/schedule/event/"+eventId+"/checkin", bytes.NewBufferString("{"))
	assert.Equal(t, http.StatusBadRequest, serve(router, badBody, &f.volunteer).Code)
}

func TestHandler_GetCheckins(t *testing.T) {
	f, router := setupHandlerTest(t)
	eventId := f.eventId.String()
	require.Equal(t, http.StatusOK, serve(router, checkinRequest(eventId, "hacker-badge"), &f.admin).Code)
	require.Equal(t, http.StatusOK, serve(router, checkinRequest(eventId, "volunteer-badge"), &f.admin).Code)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/schedule/event/"+eventId+"/checkin", nil), &f.volunteer)

	require.Equal(t, http.StatusOK, w.Code)
	var summary SummaryDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	require.Len(t, summary.Attendees, 2)
	assert.Equal(t, 2, summary.SuccessfulScans)
	assert.Equal(t, 0, summary.FailedScans)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/schedule/event/"+eventId+"/checkin", nil), &f.participant)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_ScanHistory(t *testing.T) {
	f, router := setupHandlerTest(t)
	require.Equal(t, http.StatusOK, serve(router, checkinRequest(f.eventId.String(), "hacker-badge"), &f.volunteer).Code)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/checkin/scans", nil), &f.admin)

	require.Equal(t, http.StatusOK, w.Code)
	var scans []ScanDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scans))
	require.Len(t, scans, 1)
	assert.Equal(t, "hacker", scans[0].Participant.Username)
	assert.Equal(t, "Opening ceremony", scans[0].EventName)
	assert.True(t, scans[0].Successful)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/checkin/scans", nil), &f.volunteer)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
