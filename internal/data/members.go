package data

import (
	"time"

	"github.com/aoideee/libraryhub/internal/validator"
)

// Membership types.
const (
	MembershipStandard = "standard"
	MembershipPremium  = "premium"
)

// Member statuses. Applicants start inactive until an administrator activates them.
const (
	MemberActive   = "active"
	MemberInactive = "inactive"
)

// Member is a registered library member.
type Member struct {
	ID             string    `json:"_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	MembershipType string    `json:"membershipType"`
	Status         string    `json:"status"`
	MembershipDate time.Time `json:"membershipDate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateMemberInput is the body of an administrative member creation.
type CreateMemberInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	MembershipType string `json:"membershipType"`
}

// UpdateMemberInput holds the fields a client may change on a member.
type UpdateMemberInput struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	MembershipType *string `json:"membershipType"`
	Status         *string `json:"status"`
}

// MemberFilter narrows a member listing. Search matches name, email or phone.
type MemberFilter struct {
	Search string
	Status string
	Filters
}

// MemberSortSafeList is the set of sort values accepted for members.
var MemberSortSafeList = []string{
	"createdAt", "name", "email", "membershipDate",
	"-createdAt", "-name", "-email", "-membershipDate",
}

// ValidateMember checks a member before it is written.
func ValidateMember(v *validator.Validator, member *Member) {
	v.Check(validator.NotBlank(member.Name), "name", "must be provided")
	v.Check(validator.MaxChars(member.Name, 200), "name", "must not be more than 200 characters long")
	v.Check(validator.NotBlank(member.Email), "email", "must be provided")
	v.Check(validator.Matches(member.Email, validator.EmailRX), "email", "must be a valid email address")
	v.Check(validator.NotBlank(member.Phone), "phone", "must be provided")
	v.Check(validator.MaxChars(member.Phone, 40), "phone", "must not be more than 40 characters long")
	v.Check(validator.MaxChars(member.Address, 500), "address", "must not be more than 500 characters long")
	v.Check(validator.PermittedValue(member.MembershipType, MembershipStandard, MembershipPremium), "membershipType", "must be standard or premium")
	v.Check(validator.PermittedValue(member.Status, MemberActive, MemberInactive), "status", "must be active or inactive")
}
