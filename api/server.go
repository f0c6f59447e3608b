/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers and permissions.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. RequireAuth on everything under /api except login

ROUTE GROUPS:
  /api/auth/*           Login and current user
  /api/users/*          Account management (manage_users)
  /api/teachers/*       Teacher management
  /api/attendance/*     Marks and resolved months
  /api/holidays/*       Holiday calendar
  /api/payroll/*        Salary computation and closed runs
  /api/reports/*        Attendance statistics
  /api/scenarios/*      Demo scenarios (manage_settings)
  /*                    Static files (frontend)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: RequireAuth, RequirePermission
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/attendance-engine/auth"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/auth/me", h.Me)

			r.Route("/users", func(r chi.Router) {
				r.Use(RequirePermission(auth.ManageUsers))
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
			})

			r.Route("/teachers", func(r chi.Router) {
				r.With(RequirePermission(auth.ReadTeachers)).Get("/", h.ListTeachers)
				r.With(RequirePermission(auth.ReadTeachers)).Get("/{id}", h.GetTeacher)
				r.With(RequirePermission(auth.WriteTeachers)).Post("/", h.CreateTeacher)
				r.With(RequirePermission(auth.WriteTeachers)).Put("/{id}", h.UpdateTeacher)
				r.With(RequirePermission(auth.WriteTeachers)).Delete("/{id}", h.DeleteTeacher)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.With(RequirePermission(auth.ReadAttendance)).Get("/", h.ListAttendance)
				r.With(RequirePermission(auth.ReadAttendance)).Get("/month", h.MonthAttendance)

				r.Group(func(r chi.Router) {
					r.Use(RequirePermission(auth.WriteAttendance))
					r.Post("/", h.MarkAttendance)
					r.Post("/toggle", h.ToggleAttendance)
					r.Post("/bulk", h.BulkAttendance)
					r.Delete("/", h.ClearAttendance)
				})
			})

			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", h.ListHolidays)
				r.With(RequirePermission(auth.ManageSettings)).Post("/", h.CreateHoliday)
				r.With(RequirePermission(auth.ManageSettings)).Delete("/{id}", h.DeleteHoliday)
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Use(RequirePermission(auth.ReadSalary))
				r.Get("/", h.MonthPayroll)
				r.Get("/export.csv", h.ExportPayroll)
				r.Get("/runs", h.ListPayrollRuns)
				r.Get("/runs/{year}/{month}", h.GetPayrollRun)
				r.With(RequirePermission(auth.ManageSettings)).Post("/close", h.ClosePayroll)
				r.Get("/{teacherID}", h.TeacherPayroll)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(RequirePermission(auth.ReadReports))
				r.Get("/attendance", h.AttendanceReport)
				r.Get("/trend", h.AttendanceTrend)
				r.Get("/export.csv", h.ExportAttendance)
			})

			r.Route("/scenarios", func(r chi.Router) {
				r.Use(RequirePermission(auth.ManageSettings))
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		})
	})

	// Serve the built frontend if present, otherwise a landing page.
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(landingPage))
		})
	}

	return r
}

const landingPage = `<!DOCTYPE html>
<html>
<head><title>Attendance Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Attendance Engine API</h1>
<p>No frontend build found in web/dist. All /api routes except
<code>POST /api/auth/login</code> need a bearer token.</p>
<h2>API Endpoints</h2>
<ul>
<li>/api/teachers - Teachers</li>
<li>/api/attendance/month?year=&amp;month= - Resolved month</li>
<li>/api/payroll?year=&amp;month= - Salaries</li>
<li>/api/reports/attendance?from=&amp;to= - Attendance statistics</li>
</ul>
</body>
</html>`
