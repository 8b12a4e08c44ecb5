package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/audit"
	"github.com/garnizeh/built/internal/auth"
	"github.com/garnizeh/built/internal/config"
	"github.com/garnizeh/built/internal/db"
	"github.com/garnizeh/built/internal/repository/sqlite"
)

// SetupRoutes builds the router. jobs may be nil when no worker pool runs.
func SetupRoutes(cfg *config.Config, version, buildTime string, d *db.DB, jobs Enqueuer) *mux.Router {
	r := mux.NewRouter()

	gw := sqlite.New(d, logger)
	authSvc := auth.NewService(gw, cfg.Auth, logger)
	h := NewHandlers(cfg, gw, audit.New(gw, logger), authSvc, jobs)
	systemHandler := &SystemHandler{db: d}

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware(cfg.CORSOrigins))
	r.Use(h.RecoveryMiddleware)
	if cfg.MetricsEnable {
		r.Use(MetricsMiddleware)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.fail(w, req, apperror.NotFound("Not Found"))
	})
	// a preflight for a known path arrives here as a method mismatch;
	// CORSMiddleware answers it before the 405
	r.MethodNotAllowedHandler = CORSMiddleware(cfg.CORSOrigins)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.fail(w, req, apperror.NotFound("Method Not Allowed").WithStatus(http.StatusMethodNotAllowed))
	}))

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	if cfg.MetricsEnable {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	prefix := cfg.APIPrefix
	r.HandleFunc(prefix+"/signup", h.Signup).Methods("POST")
	r.HandleFunc(prefix+"/login", h.Login).Methods("POST")
	r.HandleFunc(prefix+"/refresh", h.Refresh).Methods("POST")

	// API routes; a token is optional unless require_auth is set
	apiV1 := r.PathPrefix(prefix).Subrouter()
	apiV1.Use(h.AuthMiddleware(authSvc.Issuer(), cfg.RequireAuth))

	apiV1.HandleFunc("/signout", h.Signout).Methods("POST")

	user := apiV1.PathPrefix("/user").Subrouter()
	collectionRoutes(user, h.CreateUser, nil)
	user.HandleFunc("/{id}", h.GetUser).Methods("GET")
	user.HandleFunc("/{id}", h.UpdateUser).Methods("PATCH")
	user.HandleFunc("/{id}", h.DeleteUser).Methods("DELETE")

	project := apiV1.PathPrefix("/project").Subrouter()
	collectionRoutes(project, h.CreateProject, h.ListProjects)
	project.HandleFunc("/{id}", h.GetProject).Methods("GET")
	project.HandleFunc("/{id}", h.UpdateProject).Methods("PATCH")
	project.HandleFunc("/{id}", h.DeleteProject).Methods("DELETE")
	project.HandleFunc("/{id}/financials", h.GetProjectFinancials).Methods("GET")
	project.HandleFunc("/{id}/costs", h.AddProjectCost).Methods("POST")

	task := apiV1.PathPrefix("/task").Subrouter()
	collectionRoutes(task, h.CreateTask, h.ListTasks)
	task.HandleFunc("/{id}", h.GetTask).Methods("GET")
	task.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	task.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")

	material := apiV1.PathPrefix("/material").Subrouter()
	collectionRoutes(material, h.CreateMaterial, h.ListMaterials)
	material.HandleFunc("/{id}", h.GetMaterial).Methods("GET")
	material.HandleFunc("/{id}", h.UpdateMaterial).Methods("PATCH")
	material.HandleFunc("/{id}", h.DeleteMaterial).Methods("DELETE")

	budget := apiV1.PathPrefix("/budget").Subrouter()
	collectionRoutes(budget, h.CreateBudget, h.ListBudgets)
	budget.HandleFunc("/{id}", h.GetBudget).Methods("GET")
	budget.HandleFunc("/{id}", h.UpdateBudget).Methods("PATCH")
	budget.HandleFunc("/{id}", h.DeleteBudget).Methods("DELETE")

	cost := apiV1.PathPrefix("/cost").Subrouter()
	collectionRoutes(cost, h.CreateCost, h.ListCosts)
	cost.HandleFunc("/{id}", h.GetCost).Methods("GET")
	cost.HandleFunc("/{id}", h.UpdateCost).Methods("PATCH")
	cost.HandleFunc("/{id}", h.DeleteCost).Methods("DELETE")

	apiV1.HandleFunc("/activity_log/{id}", h.GetActivityLog).Methods("GET")

	return r
}

// collectionRoutes registers create and list on both "/x" and "/x/".
func collectionRoutes(sr *mux.Router, create, list http.HandlerFunc) {
	for _, p := range []string{"", "/"} {
		sr.HandleFunc(p, create).Methods("POST")
		if list != nil {
			sr.HandleFunc(p, list).Methods("GET")
		}
	}
}
