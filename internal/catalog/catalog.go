// Package catalog holds the static court inventory for the Octagon tennis
// facility and the hour-dependent fallback orderings. The identifiers are the
// ones the permit site uses: SiteID selects the court in the facility dropdown,
// CheckboxID is the facility checkbox that appears after the dropdown change.
package catalog

import (
	"fmt"
	"strings"
)

// Court is one bookable court. Instances are static for the process lifetime.
type Court struct {
	SiteID     string
	CheckboxID string
	Name       string
}

var courts = []Court{
	{SiteID: "3c9230f0-9e2c-4ff0-8ad7-5300eb475af5", CheckboxID: "036dfea4-c487-47b0-b7fe-c9cbe52b7c98", Name: "Octagon Tennis 1"},
	{SiteID: "f96d68ab-adea-42cb-8b42-c45a89e7ae2b", CheckboxID: "175bdff8-016e-46ab-a9df-829fe40c0754", Name: "Octagon Tennis 2"},
	{SiteID: "5633e568-7db6-4e84-a02b-3ac827406bfc", CheckboxID: "9bdef00b-afa0-4b6b-bf9a-75899f7f97c7", Name: "Octagon Tennis 3"},
	{SiteID: "3e83f44d-ed76-4a95-a73e-e9c5dcfa6e55", CheckboxID: "d311851d-ce53-49fc-9662-42adcda26109", Name: "Octagon Tennis 4"},
	{SiteID: "2158c5f2-8734-4755-b2ef-2627d4a5f0b1", CheckboxID: "8a5ca8e8-3be0-4145-a4ef-91a69671295b", Name: "Octagon Tennis 5"},
	{SiteID: "f3794e38-71ac-4440-9f3b-1adce02df1d7", CheckboxID: "77c7f42c-8891-4818-a610-d5c1027c62fe", Name: "Octagon Tennis 6"},
}

// Hand-tuned fallback orderings by court number. Courts 1 and 4 get morning
// sun; 6 and 3 keep shade into the evening. Configuration, not logic.
var (
	morningOrder   = []int{1, 4, 3, 6, 2, 5}
	afternoonOrder = []int{6, 3, 4, 1, 5, 2}
)

// UnknownResourceError is returned by Resolve for references that match no court.
type UnknownResourceError struct {
	Ref string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown court %q", e.Ref)
}

// All returns every cataloged court in display order.
func All() []Court {
	out := make([]Court, len(courts))
	copy(out, courts)
	return out
}

// Resolve maps a site ID or a display name (case-insensitive) to its court.
func Resolve(ref string) (Court, error) {
	for _, c := range courts {
		if c.SiteID == ref || strings.EqualFold(c.Name, strings.TrimSpace(ref)) {
			return c, nil
		}
	}
	return Court{}, &UnknownResourceError{Ref: ref}
}

// PriorityOrder returns the fallback sequence for a requested start hour.
// Hours before noon use the morning ordering, noon and later the afternoon
// ordering. Every court appears exactly once in either sequence.
func PriorityOrder(hour int) []Court {
	order := afternoonOrder
	if hour < 12 {
		order = morningOrder
	}
	out := make([]Court, 0, len(order))
	for _, n := range order {
		out = append(out, courts[n-1])
	}
	return out
}
