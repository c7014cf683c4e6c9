package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/osr-alliance/leadtrack/relay"
)

type sms struct {
	sender Sender
	log    *logrus.Entry
}

func (s *sms) Send(w http.ResponseWriter, r *http.Request) {
	var req relay.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.sender.Send(r.Context(), req)
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
		if errors.Is(err, relay.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		// the relay fills Message in; anything else still answers in the same shape
		if resp.Status != relay.StatusError || resp.Message == "" {
			resp = relay.SendResponse{Status: relay.StatusError, Message: err.Error()}
		}
	}
	writeJSON(w, status, resp)
}
