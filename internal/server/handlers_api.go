package server

import (
	"net/http"

	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/dispatch"
	"github.com/teemow/safegate/internal/searchconsole"
	"github.com/teemow/safegate/internal/session"
)

const noSpreadsheetMessage = "Aucun spreadsheet configuré"

// EmptyStockResponse is returned by GET /api/stock without a spreadsheet.
type EmptyStockResponse struct {
	Values  [][]interface{} `json:"values"`
	Message string          `json:"message"`
}

// StockAppendRequest is the body of POST /api/stock.
type StockAppendRequest struct {
	SpreadsheetID string          `json:"spreadsheetId"`
	Range         string          `json:"range"`
	Values        [][]interface{} `json:"values"`
}

// route describes how one API route becomes a dispatch request.
type route struct {
	op    dispatch.Operation
	build func(w http.ResponseWriter, r *http.Request) (dispatch.Params, error)
}

var (
	listTaskLists = route{op: dispatch.OpListTaskLists}

	listTasks = route{op: dispatch.OpListTasks, build: func(_ http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
		return dispatch.Params{TaskListID: r.PathValue("listId")}, nil
	}}

	insertTask = route{op: dispatch.OpInsertTask, build: func(w http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
		task, err := decodeTask(w, r)
		return dispatch.Params{TaskListID: r.PathValue("listId"), Task: task}, err
	}}

	updateTask = route{op: dispatch.OpUpdateTask, build: func(w http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
		task, err := decodeTask(w, r)
		return dispatch.Params{TaskListID: r.PathValue("listId"), TaskID: r.PathValue("taskId"), Task: task}, err
	}}

	deleteTask = route{op: dispatch.OpDeleteTask, build: func(_ http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
		return dispatch.Params{TaskListID: r.PathValue("listId"), TaskID: r.PathValue("taskId")}, nil
	}}

	listSites = route{op: dispatch.OpListSites}

	querySearchAnalytics = route{op: dispatch.OpQuerySearchAnalytics, build: func(_ http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
		q := r.URL.Query()
		return dispatch.Params{
			SiteURL:   searchconsole.NormalizeSiteURL(q.Get("siteUrl")),
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
		}, nil
	}}

	listEvents = route{op: dispatch.OpListEvents, build: func(_ http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
		q := r.URL.Query()
		return dispatch.Params{TimeMin: q.Get("timeMin"), TimeMax: q.Get("timeMax")}, nil
	}}

	appendStock = route{op: dispatch.OpAppendStock, build: func(w http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
		var body StockAppendRequest
		if err := decodeJSON(w, r, &body); err != nil {
			return dispatch.Params{}, apierror.ErrInvalidParameter("corps JSON invalide")
		}
		return dispatch.Params{SpreadsheetID: body.SpreadsheetID, Range: body.Range, Values: body.Values}, nil
	}}
)

// proxy serves a route by dispatching exactly one upstream call. The session
// is checked before the request is even parsed, so an anonymous caller always
// gets 401.
func (s *Server) proxy(rt route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(w, r, rt.op) {
			return
		}

		var params dispatch.Params
		if rt.build != nil {
			p, err := rt.build(w, r)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			params = p
		}

		s.dispatch(w, r, dispatch.Request{Operation: rt.op, Params: params})
	})
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(w, r, dispatch.OpGetStock) {
		return
	}

	q := r.URL.Query()
	if q.Get("spreadsheetId") == "" {
		writeJSON(w, http.StatusOK, EmptyStockResponse{Values: [][]interface{}{}, Message: noSpreadsheetMessage})
		return
	}

	s.dispatch(w, r, dispatch.Request{
		Operation: dispatch.OpGetStock,
		Params:    dispatch.Params{SpreadsheetID: q.Get("spreadsheetId"), Range: q.Get("range")},
	})
}

func (s *Server) authenticated(w http.ResponseWriter, r *http.Request, op dispatch.Operation) bool {
	ctx := r.Context()
	if s.sessions.Tokens(ctx, session.IDFromContext(ctx)) != nil {
		return true
	}
	s.metrics.RecordDispatchRejection(ctx, string(op.API()), string(apierror.KindUnauthenticated))
	s.writeError(w, r, apierror.ErrUnauthenticated())
	return false
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req dispatch.Request) {
	ctx := r.Context()
	tokens := s.sessions.Tokens(ctx, session.IDFromContext(ctx))

	result, err := s.dispatcher.Dispatch(ctx, tokens, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Body)
}

func decodeTask(w http.ResponseWriter, r *http.Request) (*tasksapi.Task, error) {
	task := &tasksapi.Task{}
	if err := decodeJSON(w, r, task); err != nil {
		return nil, apierror.ErrInvalidParameter("corps JSON invalide")
	}
	return task, nil
}
