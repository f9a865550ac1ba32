package reservation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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
	router.HandleFunc("/api/reservation/options", handler.Options).Methods("GET")
	router.HandleFunc("/api/reservation/taken", handler.Taken).Methods("GET")
	router.HandleFunc("/api/reservation/mine", handler.Mine).Methods("GET")
	router.HandleFunc("/api/reservation", handler.Reserve).Methods("POST")
	router.HandleFunc("/api/admin/reservation", handler.List).Methods("GET")
	return f, router
}

func serve(router *mux.Router, req *http.Request, u *user.User) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, test_utils.RequestAs(req, u))
	return w
}

func reserveRequest(dto ReservationRequestDTO) *http.Request {
	body, _ := json.Marshal(dto)
	return httptest.NewRequest(http.MethodPost, "/api/reservation", bytes.NewReader(body))
}

var fairyDTO = ReservationRequestDTO{
	TeamName: "Segfaults",
	Theme:    "DARK_FAIRY",
	TimeSlot: "SAT_11PM_2AM",
	Members:  []string{"bob"},
}

func TestHandler_Options(t *testing.T) {
	f, router := setupHandlerTest(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/reservation/options", nil), &f.ada)
	require.Equal(t, http.StatusOK, w.Code)
	var options OptionsDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&options))
	require.Len(t, options.Themes, 3)
	assert.Equal(t, ThemeDTO{Value: "DUNGEONS_AND_DRAGONS", Label: "Dungeons and Dragons", Room: "ROOM_2324"}, options.Themes[0])
	require.Len(t, options.TimeSlots, 12)
	assert.Equal(t, TimeSlotDTO{Value: "FRI_8_11PM", Label: "Fri: 8–11 PM"}, options.TimeSlots[0])
}

func TestHandler_Reserve(t *testing.T) {
	f, router := setupHandlerTest(t)

	w := serve(router, reserveRequest(fairyDTO), &f.ada)
	require.Equal(t, http.StatusCreated, w.Code)
	var created ReservationDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "ROOM_2328", created.Room)
	assert.Equal(t, []string{"ada", "bob"}, created.Members)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/reservation/taken", nil), &f.carol)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"theme":"DARK_FAIRY","timeSlot":"SAT_11PM_2AM"}]`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/reservation/mine", nil), &f.ada)
	require.Equal(t, http.StatusOK, w.Code)
	var mine ReservationDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&mine))
	assert.Equal(t, created.Id, mine.Id)

	w = serve(router, reserveRequest(fairyDTO), &f.carol)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"that theme and time slot is already taken"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/admin/reservation", nil), &f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	var all []ReservationDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	assert.Len(t, all, 1)
}

func TestHandler_ReserveErrors(t *testing.T) {
	f, router := setupHandlerTest(t)

	invalid := fairyDTO
	invalid.Theme = "HAUNTED_HOUSE"
	assert.Equal(t, http.StatusBadRequest, serve(router, reserveRequest(invalid), &f.ada).Code)

	unknown := fairyDTO
	unknown.Members = []string{"ghost"}
	assert.Equal(t, http.StatusUnprocessableEntity, serve(router, reserveRequest(unknown), &f.ada).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(router, reserveRequest(fairyDTO), nil).Code)

	bad := httptest.NewRequest(http.MethodPost, "/api/reservation", bytes.NewBufferString("["))
	assert.Equal(t, http.StatusBadRequest, serve(router, bad, &f.ada).Code)

	assert.Equal(t, http.StatusNotFound, serve(router, httptest.NewRequest(http.MethodGet, "/api/reservation/mine", nil), &f.ada).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, httptest.NewRequest(http.MethodGet, "/api/admin/reservation", nil), &f.ada).Code)
}
