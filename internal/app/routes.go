package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Schedule
	r.HandleFunc("/api/schedule/event", deps.ScheduleHandler.ListEvents).Methods("GET")
	r.HandleFunc("/api/schedule/event", deps.ScheduleHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/schedule/event/{id}", deps.ScheduleHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/schedule/event/{id}", deps.ScheduleHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/schedule/event/{id}", deps.ScheduleHandler.DeleteEvent).Methods("DELETE")
	r.HandleFunc("/api/schedule/event/{id}/favorite", deps.ScheduleHandler.AddFavorite).Methods("PUT")
	r.HandleFunc("/api/schedule/event/{id}/favorite", deps.ScheduleHandler.RemoveFavorite).Methods("DELETE")
	r.HandleFunc("/api/schedule/days", deps.ScheduleHandler.Days).Methods("GET")
	r.HandleFunc("/api/schedule/now", deps.ScheduleHandler.Now).Methods("GET")
	r.HandleFunc("/api/schedule/types", deps.ScheduleHandler.EventTypes).Methods("GET")
	r.HandleFunc("/api/schedule/export.csv", deps.ScheduleHandler.ExportCsv).Methods("GET")

	// Grid
	r.HandleFunc("/api/schedule/grid", deps.GridHandler.GetGrid).Methods("GET")

	// iCalendar
	r.HandleFunc("/api/schedule/feed.ics", deps.FeedHandler.GetFeed).Methods("GET")
	r.HandleFunc("/api/schedule/import/{sourceId}", deps.FeedHandler.RunImport).Methods("POST")

	// Check-in
	r.HandleFunc("/api/schedule/event/{id}/checkin", deps.CheckinHandler.CheckIn).Methods("POST")
	r.HandleFunc("/api/schedule/event/{id}/checkin", deps.CheckinHandler.GetCheckins).Methods("GET")
	r.HandleFunc("/api/checkin/scans", deps.CheckinHandler.ScanHistory).Methods("GET")

	// Travel reimbursement
	r.HandleFunc("/api/reimbursement", deps.ReimbursementHandler.GetStatus).Methods("GET")
	r.HandleFunc("/api/reimbursement", deps.ReimbursementHandler.Submit).Methods("POST")
	r.HandleFunc("/api/reimbursement/{id}", deps.ReimbursementHandler.Update).Methods("PUT")
	r.HandleFunc("/api/reimbursement/{id}", deps.ReimbursementHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/reimbursement/{id}/invite", deps.ReimbursementHandler.RespondToInvite).Methods("POST")
	r.HandleFunc("/api/admin/reimbursement", deps.ReimbursementHandler.List).Methods("GET")

	// Themed rooms
	r.HandleFunc("/api/reservation/options", deps.ReservationHandler.Options).Methods("GET")
	r.HandleFunc("/api/reservation/taken", deps.ReservationHandler.Taken).Methods("GET")
	r.HandleFunc("/api/reservation/mine", deps.ReservationHandler.Mine).Methods("GET")
	r.HandleFunc("/api/reservation", deps.ReservationHandler.Reserve).Methods("POST")
	r.HandleFunc("/api/admin/reservation", deps.ReservationHandler.List).Methods("GET")

	// User management
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/search", deps.UserHandler.SearchUsers).Methods("GET")
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user", deps.UserHandler.ListUsers).Methods("GET")

	// Google integration
	if deps.GoogleHandler != nil {
		r.HandleFunc("/api/integrations/google/sync", deps.GoogleHandler.SyncAll).Methods("POST")
	}
}
