package film

import "fmt"

// Role is the semantic purpose of a located element.
type Role string

const (
	RoleCard   Role = "card"
	RoleTab    Role = "tab"
	RoleReveal Role = "reveal"
	RolePlayer Role = "player"
	RoleData   Role = "data"
)

// Strategy is how a Locator's Value is matched against the page.
type Strategy string

const (
	// ByCSS matches a CSS selector.
	ByCSS Strategy = "css"
	// ByText matches elements whose own trimmed text equals Value.
	ByText Strategy = "text"
	// ByXPath matches an XPath expression.
	ByXPath Strategy = "xpath"
)

// Locator describes how to find an element playing a given role.
type Locator struct {
	Role     Role
	Strategy Strategy
	Value    string
}

// CSS returns a CSS locator for role.
func CSS(role Role, selector string) Locator {
	return Locator{Role: role, Strategy: ByCSS, Value: selector}
}

// Text returns a visible-text locator for role.
func Text(role Role, text string) Locator {
	return Locator{Role: role, Strategy: ByText, Value: text}
}

func (l Locator) String() string {
	return fmt.Sprintf("%s[%s=%q]", l.Role, l.Strategy, l.Value)
}
