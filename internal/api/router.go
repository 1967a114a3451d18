package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the full route table for the serving surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	slots := r.PathPrefix("/slots/{slot}").Subrouter()
	slots.HandleFunc("/ads", s.CreateAdHandler).Methods("POST")
	slots.HandleFunc("/ad", s.NextAdHandler).Methods("GET")
	slots.HandleFunc("/ads/{id}", s.AdHandler).Methods("GET")
	slots.HandleFunc("/ads/{id}/asset", s.AssetHandler).Methods("GET")
	slots.HandleFunc("/ads/{id}/count", s.CountHandler).Methods("POST")
	slots.HandleFunc("/ads/{id}/redirect", s.RedirectHandler).Methods("GET")

	me := r.PathPrefix("/me").Subrouter()
	me.HandleFunc("/report", s.ReportHandler).Methods("GET")
	me.HandleFunc("/final_report", s.FinalReportHandler).Methods("GET")

	r.HandleFunc("/initialize", s.InitializeHandler).Methods("POST")
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	return r
}
