package server

import "net/http"

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth/url", s.handleAuthURL)
	mux.Handle("GET /auth/callback", s.limiter.Middleware(http.HandlerFunc(s.handleAuthCallback)))
	mux.HandleFunc("GET /auth/status", s.handleAuthStatus)
	mux.HandleFunc("GET /auth/logout", s.handleLogout)

	mux.Handle("POST /admin/config", s.limiter.Middleware(http.HandlerFunc(s.handleConfigure)))
	mux.HandleFunc("GET /admin/config/status", s.handleConfigStatus)

	mux.Handle("GET /api/tasks/lists", s.proxy(listTaskLists))
	mux.Handle("GET /api/tasks/{listId}", s.proxy(listTasks))
	mux.Handle("POST /api/tasks/{listId}", s.proxy(insertTask))
	mux.Handle("PUT /api/tasks/{listId}/{taskId}", s.proxy(updateTask))
	mux.Handle("DELETE /api/tasks/{listId}/{taskId}", s.proxy(deleteTask))

	mux.Handle("GET /api/searchconsole/sites", s.proxy(listSites))
	mux.Handle("GET /api/searchconsole/data", s.proxy(querySearchAnalytics))

	mux.Handle("GET /api/calendar/events", s.proxy(listEvents))

	mux.HandleFunc("GET /api/stock", s.handleGetStock)
	mux.Handle("POST /api/stock", s.proxy(appendStock))

	mux.HandleFunc("GET /health", s.handleHealth)
}
