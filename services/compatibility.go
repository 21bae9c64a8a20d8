package services

import "github.com/fabricaware/workorder-app/models"

// TemplateCompatible decides whether a template with the given usage kind may
// be applied to an order of the given kind. Templates declared "both" fit
// either kind; otherwise the kinds must match exactly.
func TemplateCompatible(orderKind, templateUsageKind string) bool {
	if templateUsageKind == models.TemplateUsageBoth {
		return true
	}
	return orderKind == templateUsageKind
}

// CheckTemplateApply is the gate in front of the apply-template collaborator
// call. Incompatible templates are still listed (discoverability) but their
// apply action is disabled with this error as the reason.
func CheckTemplateApply(orderKind, templateUsageKind string) error {
	if TemplateCompatible(orderKind, templateUsageKind) {
		return nil
	}
	return &CompatibilityError{OrderKind: orderKind, TemplateKind: templateUsageKind}
}

// DefaultTemplate reports whether a template carrying the given default flags
// is the default choice for orderKind. An empty orderKind means the caller is
// not filtering by kind and either flag qualifies.
func DefaultTemplate(orderKind string, defaultForProduction, defaultForProcessing bool) bool {
	switch orderKind {
	case models.OrderKindProduction:
		return defaultForProduction
	case models.OrderKindProcessing:
		return defaultForProcessing
	default:
		return defaultForProduction || defaultForProcessing
	}
}
