package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // /{id} and /{id}/run

	// API routes - Users
	mux.HandleFunc("/api/users", s.handleUsersRoute)
	mux.HandleFunc("/api/users/", s.handleUserRoutes) // /{id}

	// API routes - Accounts
	mux.HandleFunc("/api/accounts", s.handleAccountsRoute)
	mux.HandleFunc("/api/accounts/", s.handleAccountRoutes) // /{id} and /{id}/positions

	// API routes - Key/value storage
	mux.HandleFunc("/api/kv", s.app.KVHandler.ListKVHandler)
	mux.HandleFunc("/api/kv/", s.handleKVRoutes) // /{key}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobsRoute routes /api/jobs by method
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.JobHandler.CreateJobHandler(w, r)
	case http.MethodGet:
		s.app.JobHandler.ListJobsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes routes /api/jobs/{id} and /api/jobs/{id}/run
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.JobHandler.GetJobHandler(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "run":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.JobHandler.RunJobHandler(w, r, parts[0])
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleUsersRoute routes /api/users by method
func (s *Server) handleUsersRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.UserHandler.CreateUserHandler(w, r)
	case http.MethodGet:
		s.app.UserHandler.ListUsersHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUserRoutes routes /api/users/{id} by method
func (s *Server) handleUserRoutes(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if userID == "" || strings.Contains(userID, "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.UserHandler.GetUserHandler(w, r, userID)
	case http.MethodPut:
		s.app.UserHandler.UpdateUserHandler(w, r, userID)
	case http.MethodDelete:
		s.app.UserHandler.DeleteUserHandler(w, r, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAccountsRoute routes /api/accounts by method
func (s *Server) handleAccountsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.AccountHandler.CreateAccountHandler(w, r)
	case http.MethodGet:
		s.app.AccountHandler.ListAccountsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAccountRoutes routes /api/accounts/{id} and /api/accounts/{id}/positions
func (s *Server) handleAccountRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.app.AccountHandler.GetAccountHandler(w, r, parts[0])
		case http.MethodDelete:
			s.app.AccountHandler.DeleteAccountHandler(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "positions":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.AccountHandler.AddPositionHandler(w, r, parts[0])
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleKVRoutes routes /api/kv/{key} by method
func (s *Server) handleKVRoutes(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/kv/")
	if key == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.app.KVHandler.SetKVHandler(w, r, key)
	case http.MethodDelete:
		s.app.KVHandler.DeleteKVHandler(w, r, key)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
