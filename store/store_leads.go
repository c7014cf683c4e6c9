package store

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	storage "github.com/osr-alliance/leadtrack/storage"
)

// CreateLead validates req, assigns the id and follow-up date, and persists the lead.
func (s *store) CreateLead(ctx context.Context, req CreateLeadRequest) (*Lead, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	lead := &Lead{
		ID:           s.newID(),
		Name:         req.Name,
		Phone:        req.Phone,
		Source:       req.Source,
		Notes:        req.Notes,
		FollowUpDate: followUpDate(s.now()),
	}

	if err := s.store.Insert(ctx, lead); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"lead_id": lead.ID,
		"source":  lead.Source,
	}).Info("lead created")
	return lead, nil
}

func (s *store) GetLead(ctx context.Context, id string) (*Lead, error) {
	l := &Lead{
		ID: id,
	}

	err := s.store.Select(ctx, l, LeadsGetByID)
	if errors.Is(err, storage.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListLeads returns every lead in storage order; never nil.
func (s *store) ListLeads(ctx context.Context) ([]Lead, error) {
	leads := []Lead{}
	err := s.store.SelectAll(ctx, &Lead{}, &leads, LeadsGetAll)
	if err != nil {
		return nil, err
	}
	return leads, nil
}

func followUpDate(created time.Time) string {
	return created.UTC().Add(FollowUpAfter).Format(time.RFC3339Nano)
}
