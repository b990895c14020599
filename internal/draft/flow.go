package draft

import "github.com/Domenick1991/tourbooking/internal/domain"

// Flow is the ordered list of wizard steps.
type Flow []domain.WizardStep

var (
	// HostedCheckoutFlow skips the card form; the provider page collects card data.
	HostedCheckoutFlow = Flow{domain.StepDetails, domain.StepConfirmation}
	CardFormFlow       = Flow{domain.StepDetails, domain.StepPayment, domain.StepConfirmation}
)

func (fl Flow) CollectsCard() bool {
	return fl.index(domain.StepPayment) >= 0
}

func (fl Flow) index(s domain.WizardStep) int {
	for i, step := range fl {
		if step == s {
			return i
		}
	}
	return -1
}

func (fl Flow) next(s domain.WizardStep) domain.WizardStep {
	i := fl.index(s)
	if i < 0 {
		return fl[0]
	}
	if i+1 < len(fl) {
		return fl[i+1]
	}
	return s
}

func (fl Flow) prev(s domain.WizardStep) domain.WizardStep {
	i := fl.index(s)
	if i <= 0 {
		return fl[0]
	}
	return fl[i-1]
}

// clamp maps a stored step onto this flow, falling back to the first step.
func (fl Flow) clamp(s domain.WizardStep) domain.WizardStep {
	if fl.index(s) < 0 {
		return fl[0]
	}
	return s
}
