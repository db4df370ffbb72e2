package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ms-discovery/internal/classifier"
)

// Event is an event as the platform backend serializes it. Dates arrive as
// strings and may be missing or malformed.
type Event struct {
	ID                  string          `json:"_id"`
	Name                string          `json:"name"`
	Organization        OrganizationRef `json:"organization"`
	RegistrationStartOn string          `json:"registrationStartOn,omitempty"`
	CloseOn             string          `json:"closeOn,omitempty"`
	CreatedAt           string          `json:"createdAt,omitempty"`
	PostedOn            string          `json:"postedOn,omitempty"`
	EventDate           string          `json:"eventDate,omitempty"`
	ParticipationsCount int             `json:"participationsCount"`
	Fee                 Amount          `json:"fee"`
}

// Amount is a fee as the backend sends it: a number, a numeric string, an
// empty string or null. Empty and null read as zero.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" || s == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid fee %s: %w", data, err)
	}
	a.Decimal = d
	return nil
}

// ToClassifier converts the wire event, dropping dates that do not parse.
func (e Event) ToClassifier() classifier.Event {
	count := e.ParticipationsCount
	if count < 0 {
		count = 0
	}
	return classifier.Event{
		ID:                  e.ID,
		Name:                e.Name,
		OrganizationID:      e.Organization.ID,
		RegistrationStartOn: classifier.ParseTime(e.RegistrationStartOn),
		CloseOn:             classifier.ParseTime(e.CloseOn),
		CreatedAt:           classifier.ParseTime(e.CreatedAt),
		PostedOn:            classifier.ParseTime(e.PostedOn),
		EventDate:           classifier.ParseTime(e.EventDate),
		ParticipationsCount: count,
		Fee:                 e.Fee.Decimal,
	}
}

// OrganizationRef is the hosting organization, sent either as a bare id or
// as a populated object.
type OrganizationRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts a string id, an object, or null.
func (o *OrganizationRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = OrganizationRef{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*o = OrganizationRef{ID: id}
		return nil
	}

	type plain OrganizationRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid organization reference: %w", err)
	}
	*o = OrganizationRef(p)
	return nil
}
