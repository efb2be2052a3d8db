// Package service implements lead intake and lifecycle operations.
package service

import (
	"context"
	"errors"
	"time"

	"crm_rotation_backend/internal/events"
	"crm_rotation_backend/internal/leads/domain"
	"crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/leads/transport"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the lead service.
type Repository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ListQueued(ctx context.Context, limit int) ([]repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, statusID int, subStatus *string) (repository.Lead, error)
	SetDealValue(ctx context.Context, id uuid.UUID, dealValue int64) error
	ActiveOwner(ctx context.Context, leadID uuid.UUID) (uuid.UUID, *int, error)
}

// ComplianceChecker reports whether a phone number is on the DND registry.
type ComplianceChecker interface {
	IsBlocked(ctx context.Context, phoneNumber string) (bool, error)
}

// ActivityRecorder refreshes the active assignment's activity timestamp.
type ActivityRecorder interface {
	TouchActivity(ctx context.Context, leadID uuid.UUID) error
}

// Service handles lead intake and status transitions.
type Service struct {
	repo       Repository
	compliance ComplianceChecker
	taxonomy   domain.Taxonomy
	eventBus   events.Bus
	activity   ActivityRecorder
}

// New creates a new lead service.
func New(repo Repository, compliance ComplianceChecker, taxonomy domain.Taxonomy, eventBus events.Bus) *Service {
	return &Service{repo: repo, compliance: compliance, taxonomy: taxonomy, eventBus: eventBus}
}

// SetActivityRecorder wires the assignment store in after construction
// (the assignment module is built later in the composition root).
func (s *Service) SetActivityRecorder(activity ActivityRecorder) {
	s.activity = activity
}

// Intake registers a new lead in the queue. The compliance filter is
// consulted up front so a DND number is flagged non-contactable from the
// start; it does not block intake or assignment.
func (s *Service) Intake(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	normalized := phone.NormalizeE164(req.Phone)

	blocked, err := s.compliance.IsBlocked(ctx, normalized)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Name:        req.Name,
		Phone:       normalized,
		Email:       req.Email,
		Source:      req.Source,
		SubSource:   req.SubSource,
		Territory:   req.Territory,
		Contactable: !blocked,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		Phone:       lead.Phone,
		Source:      lead.Source,
		Territory:   lead.Territory,
		Contactable: lead.Contactable,
	})

	return s.toResponse(lead), nil
}

// Get returns one lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return s.toResponse(lead), nil
}

// ListQueued returns the unassigned queue.
func (s *Service) ListQueued(ctx context.Context, limit int) (transport.LeadListResponse, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	leads, err := s.repo.ListQueued(ctx, limit)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		items = append(items, s.toResponse(l))
	}
	return transport.LeadListResponse{Items: items, Total: len(items)}, nil
}

// ChangeStatus moves a lead through the taxonomy. Moving to Deal Won with a
// deal value publishes LeadConverted so the commission module can record the
// applicable slab percentage.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.ChangeStatusRequest) (transport.LeadResponse, error) {
	if err := s.taxonomy.ValidatePair(req.StatusID, req.SubStatus); err != nil {
		return transport.LeadResponse{}, apperr.Validation(err.Error())
	}

	if req.StatusID == domain.StatusDealWon && req.DealValue == nil {
		return transport.LeadResponse{}, apperr.Validation("deal value is required when closing a deal")
	}

	lead, err := s.repo.UpdateStatus(ctx, id, req.StatusID, req.SubStatus)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}

	// A status change is agent activity; refresh the assignment timestamp
	// so the no-activity sweep does not rotate a lead that is being worked.
	if s.activity != nil {
		if err := s.activity.TouchActivity(ctx, id); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	if req.StatusID == domain.StatusDealWon {
		if err := s.repo.SetDealValue(ctx, id, *req.DealValue); err != nil {
			return transport.LeadResponse{}, err
		}
		lead.DealValue = req.DealValue

		agentID, tier, err := s.repo.ActiveOwner(ctx, id)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, err
		}
		if err == nil {
			s.eventBus.Publish(ctx, events.LeadConverted{
				BaseEvent:       events.NewBaseEvent(),
				LeadID:          id,
				AgentID:         agentID,
				DealValue:       *req.DealValue,
				DesignationTier: tier,
			})
		}
	}

	return s.toResponse(lead), nil
}

func (s *Service) toResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                 l.ID,
		Name:               l.Name,
		Phone:              l.Phone,
		Email:              l.Email,
		Source:             l.Source,
		SubSource:          l.SubSource,
		Territory:          l.Territory,
		StatusID:           l.StatusID,
		Status:             s.taxonomy.Name(l.StatusID),
		SubStatus:          l.SubStatus,
		DealValue:          l.DealValue,
		AssignmentAttempts: l.AssignmentAttempts,
		IsFresh:            l.IsFresh,
		Contactable:        l.Contactable,
		Queued:             l.Queued,
		CreatedAt:          l.CreatedAt.Format(time.RFC3339),
		LastActivityAt:     l.LastActivityAt.Format(time.RFC3339),
	}
}
