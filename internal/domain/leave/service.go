package leave

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"workforce/internal/domain/core"
)

const (
	MinDenyNotesLength = 10
	MaxReasonLength    = 1000
)

// Service runs the leave request workflow. Every transition locks the
// request, moves ledger credits through a bound Engine and records an audit
// event in one transaction; events are published only after commit.
type Service struct {
	Store     Store
	Employees core.Directory
	Engine    *Engine
	Publisher Publisher
}

func NewService(store Store, employees core.Directory, engine *Engine, publisher Publisher) *Service {
	return &Service{Store: store, Employees: employees, Engine: engine, Publisher: publisher}
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (LeaveRequest, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return LeaveRequest{}, &ValidationError{Field: "employeeId", Reason: "is required"}
	}
	leaveType, err := ParseLeaveType(in.LeaveType)
	if err != nil {
		return LeaveRequest{}, err
	}
	if in.StartDate.IsZero() {
		return LeaveRequest{}, &ValidationError{Field: "startDate", Reason: "is required"}
	}
	if in.EndDate.IsZero() {
		return LeaveRequest{}, &ValidationError{Field: "endDate", Reason: "is required"}
	}
	days, err := CalculateDays(in.StartDate, in.EndDate)
	if err != nil {
		return LeaveRequest{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return LeaveRequest{}, &ValidationError{Field: "reason", Reason: fmt.Sprintf("must be at most %d characters", MaxReasonLength)}
	}

	emp, err := s.Employees.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if leaveType.Credited() {
		if err := s.Engine.checkUsable(emp, in.StartDate); err != nil {
			return LeaveRequest{}, err
		}
	}

	actorID := in.ActorID
	if actorID == "" {
		actorID = emp.ID
	}
	now := s.Engine.Now()
	req := LeaveRequest{
		EmployeeID:    emp.ID,
		LeaveType:     leaveType,
		StartDate:     civilDate(in.StartDate),
		EndDate:       civilDate(in.EndDate),
		DaysRequested: days,
		Reason:        reason,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.Store.WithTx(ctx, func(tx Store) error {
		created, err := tx.CreateRequest(ctx, req)
		if err != nil {
			return err
		}
		req = created
		return tx.InsertEvent(ctx, RequestEvent{
			RequestID: created.ID,
			Action:    "submit",
			ToStatus:  StatusPending,
			ActorID:   actorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("submit leave request: %w", err)
	}

	s.publish(ctx, Event{Type: EventSubmitted, Request: req, ActorID: actorID})
	return req, nil
}

// Approve moves a pending request to approved. Credited types deduct
// days_requested from the start date's year; if the ledger cannot cover it
// the request stays pending and nothing is written.
func (s *Service) Approve(ctx context.Context, requestID, reviewerID, notes string) (LeaveRequest, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return LeaveRequest{}, &ValidationError{Field: "reviewerId", Reason: "is required"}
	}
	notes = strings.TrimSpace(notes)
	req, err := s.transition(ctx, requestID, "approve", reviewerID, notes, isPending,
		func(tx Store, req *LeaveRequest, event *RequestEvent) error {
			if req.LeaveType.Credited() {
				emp, err := s.Employees.GetEmployee(ctx, req.EmployeeID)
				if err != nil {
					return err
				}
				engine := s.Engine.Bind(tx)
				if err := engine.checkUsable(emp, req.StartDate); err != nil {
					return err
				}
				year := req.StartDate.Year()
				deduction, err := engine.DeductCredits(ctx, req.EmployeeID, req.DaysRequested, year)
				if err != nil {
					return err
				}
				if !deduction.Complete() {
					return &InsufficientCreditsError{
						EmployeeID: req.EmployeeID,
						Year:       year,
						Requested:  deduction.Requested,
						Available:  deduction.Available,
						Shortfall:  deduction.Shortfall,
					}
				}
				deducted := deduction.Applied
				delta := deducted.Neg()
				req.CreditsDeducted = &deducted
				req.CreditsYear = &year
				event.CreditsDelta = &delta
			}
			reviewedAt := event.CreatedAt
			req.Status = StatusApproved
			req.ReviewedBy = reviewerID
			req.ReviewedAt = &reviewedAt
			req.ReviewNotes = notes
			return nil
		})
	if err != nil {
		return LeaveRequest{}, err
	}

	s.publish(ctx, Event{Type: EventApproved, Request: req, ActorID: reviewerID, Notes: notes})
	return req, nil
}

func (s *Service) Deny(ctx context.Context, requestID, reviewerID, notes string) (LeaveRequest, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return LeaveRequest{}, &ValidationError{Field: "reviewerId", Reason: "is required"}
	}
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) < MinDenyNotesLength {
		return LeaveRequest{}, &ValidationError{Field: "notes", Reason: fmt.Sprintf("must be at least %d characters", MinDenyNotesLength)}
	}
	req, err := s.transition(ctx, requestID, "deny", reviewerID, notes, isPending,
		func(_ Store, req *LeaveRequest, event *RequestEvent) error {
			reviewedAt := event.CreatedAt
			req.Status = StatusDenied
			req.ReviewedBy = reviewerID
			req.ReviewedAt = &reviewedAt
			req.ReviewNotes = notes
			return nil
		})
	if err != nil {
		return LeaveRequest{}, err
	}

	s.publish(ctx, Event{Type: EventDenied, Request: req, ActorID: reviewerID, Notes: notes})
	return req, nil
}

// Cancel withdraws a pending request, or an approved one whose start date is
// still in the future. Deducted credits go back to the year they came from.
func (s *Service) Cancel(ctx context.Context, requestID, actorID string) (LeaveRequest, error) {
	if strings.TrimSpace(actorID) == "" {
		return LeaveRequest{}, &ValidationError{Field: "actorId", Reason: "is required"}
	}
	today := s.Engine.Today()
	cancellable := func(req LeaveRequest) bool {
		switch req.Status {
		case StatusPending:
			return true
		case StatusApproved:
			return civilDate(req.StartDate).After(today)
		default:
			return false
		}
	}
	req, err := s.transition(ctx, requestID, "cancel", actorID, "", cancellable,
		func(tx Store, req *LeaveRequest, event *RequestEvent) error {
			if req.Status == StatusApproved && req.CreditsDeducted != nil && req.CreditsYear != nil && req.CreditsDeducted.IsPositive() {
				restoration, err := s.Engine.Bind(tx).RestoreCredits(ctx, req.EmployeeID, *req.CreditsDeducted, *req.CreditsYear)
				if err != nil {
					return err
				}
				if !restoration.Complete() {
					return fmt.Errorf("%w: %s of %s days restorable in %d",
						ErrRestoreIncomplete, restoration.Restorable, restoration.Requested, *req.CreditsYear)
				}
				delta := restoration.Applied
				event.CreditsDelta = &delta
			}
			cancelledAt := event.CreatedAt
			req.Status = StatusCancelled
			req.CancelledBy = actorID
			req.CancelledAt = &cancelledAt
			return nil
		})
	if err != nil {
		return LeaveRequest{}, err
	}

	s.publish(ctx, Event{Type: EventCancelled, Request: req, ActorID: actorID})
	return req, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.Store.GetRequest(ctx, requestID)
}

func (s *Service) ListForEmployee(ctx context.Context, employeeID string, limit, offset int) (RequestListResult, error) {
	return s.Store.ListRequests(ctx, employeeID, limit, offset)
}

func (s *Service) History(ctx context.Context, requestID string) ([]RequestEvent, error) {
	if _, err := s.Store.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return s.Store.ListEvents(ctx, requestID)
}

func (s *Service) transition(
	ctx context.Context,
	requestID, action, actorID, notes string,
	allowed func(LeaveRequest) bool,
	apply func(tx Store, req *LeaveRequest, event *RequestEvent) error,
) (LeaveRequest, error) {
	var out LeaveRequest
	err := s.Store.WithTx(ctx, func(tx Store) error {
		req, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !allowed(req) {
			return &StateConflictError{RequestID: req.ID, From: req.Status, Action: action}
		}

		now := s.Engine.Now()
		event := RequestEvent{
			RequestID:  req.ID,
			Action:     action,
			FromStatus: req.Status,
			ActorID:    actorID,
			Notes:      notes,
			CreatedAt:  now,
		}
		if err := apply(tx, &req, &event); err != nil {
			return err
		}
		req.UpdatedAt = now
		event.ToStatus = req.Status

		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, event); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, event Event) {
	if s.Publisher != nil {
		s.Publisher.Publish(ctx, event)
	}
}

func isPending(req LeaveRequest) bool {
	return req.Status == StatusPending
}
