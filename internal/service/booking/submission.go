package booking

import (
	"fmt"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/Domenick1991/tourbooking/internal/validation"
)

type SubmissionState string

const (
	StateCollecting SubmissionState = "collecting"
	StateConfirming SubmissionState = "confirming"
	StateSubmitting SubmissionState = "submitting"
	StateSucceeded  SubmissionState = "succeeded"
	StateFailed     SubmissionState = "failed"
)

var submissionTransitions = map[SubmissionState][]SubmissionState{
	StateCollecting: {StateConfirming, StateFailed},
	StateConfirming: {StateCollecting, StateSubmitting, StateFailed},
	StateSubmitting: {StateSucceeded, StateFailed},
}

// Submission tracks one pass through the confirmation and submission steps.
type Submission struct {
	State       SubmissionState   `json:"state"`
	BookingID   string            `json:"booking_id,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Message     string            `json:"message,omitempty"`
	Errors      validation.Errors `json:"errors,omitempty"`
	Quote       *pricing.Quote    `json:"quote,omitempty"`
}

func NewSubmission() *Submission {
	return &Submission{State: StateCollecting}
}

func (s *Submission) transition(next SubmissionState) error {
	for _, allowed := range submissionTransitions[s.State] {
		if allowed == next {
			s.State = next
			return nil
		}
	}
	return fmt.Errorf("%w: submission %s -> %s", domain.ErrInvalidTransition, s.State, next)
}

func (s *Submission) fail(msg string) {
	s.State = StateFailed
	s.Message = msg
}

func (s *Submission) Done() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}
