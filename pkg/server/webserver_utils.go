package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/matst80/slask-audience/pkg/common"
	"github.com/matst80/slask-audience/pkg/criteria"
	"github.com/matst80/slask-audience/pkg/session"
	"github.com/matst80/slask-audience/pkg/storage"
)

type errorResponse struct {
	Error  string                `json:"error"`
	Fields []criteria.FieldError `json:"fields,omitempty"`
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var validation *criteria.ValidationError
	var invalidEvent *session.InvalidEventError
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	resp := errorResponse{Error: err.Error()}
	var validation *criteria.ValidationError
	if errors.As(err, &validation) {
		resp.Fields = validation.Fields
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, status, resp)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, statusFor(err), err)
}

// downstreamError reports a failing collaborator as a bad gateway unless the
// error already maps to a more specific status.
func downstreamError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadGateway
	}
	writeError(w, r, status, err)
}

func parseId(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

func (ws *WebServer) getSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := ws.Sessions.Get(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return s, true
}
