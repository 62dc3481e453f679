// Package policy implements the Strategy pattern for gateway page layouts.
// Each portal has its own policy describing where its state and form controls live.
package policy

import (
	"github.com/eliteGoblin/netmon/internal/domain"
)

// DefaultPortalID is used when the configuration does not name a portal.
const DefaultPortalID = "suda"

// PortalPolicy defines the strategy interface for one gateway page.
type PortalPolicy interface {
	// ID returns unique identifier (e.g., "suda").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// SuccessLocator returns the XPath of the logged-in banner.
	SuccessLocator() string

	// SuccessPhrase returns the banner text that means "logged in".
	// Compared after trimming surrounding whitespace.
	SuccessPhrase() string

	// MessageLocator returns the XPath of the page's status message.
	MessageLocator() string

	// OperatorLocators returns candidate XPaths for the operator dropdown.
	OperatorLocators() []string

	// AccountLocators returns candidate XPaths for the account input.
	AccountLocators() []string

	// PasswordLocators returns candidate XPaths for the password input.
	PasswordLocators() []string

	// SubmitLocators returns candidate XPaths for the submit control.
	SubmitLocators() []string
}

// ToPortal converts a PortalPolicy to a domain.Portal entity.
func ToPortal(pp PortalPolicy) domain.Portal {
	return domain.Portal{
		ID:             pp.ID(),
		Name:           pp.Name(),
		SuccessXPath:   pp.SuccessLocator(),
		SuccessPhrase:  pp.SuccessPhrase(),
		MessageXPath:   pp.MessageLocator(),
		OperatorXPaths: pp.OperatorLocators(),
		AccountXPaths:  pp.AccountLocators(),
		PasswordXPaths: pp.PasswordLocators(),
		SubmitXPaths:   pp.SubmitLocators(),
	}
}
