package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/osr-alliance/leadtrack/store"
)

type lead struct {
	store store.Store
	log   *logrus.Entry
}

func (l *lead) Create(w http.ResponseWriter, r *http.Request) {
	var req store.CreateLeadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := l.store.CreateLead(r.Context(), req)
	if err != nil {
		l.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (l *lead) List(w http.ResponseWriter, r *http.Request) {
	leads, err := l.store.ListLeads(r.Context())
	if err != nil {
		l.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, leads)
}

func (l *lead) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	found, err := l.store.GetLead(r.Context(), id)
	if err != nil {
		l.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (l *lead) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		l.log.WithError(err).WithField("path", r.URL.Path).Error("lead request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
