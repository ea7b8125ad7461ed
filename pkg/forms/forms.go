// Package forms holds the form definitions shipped with formflow: the
// multi-field registration form and the simplified privacy-settings form.
package forms

import (
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Field names shared with the remote API.
const (
	FieldName                  = "name"
	FieldEmail                 = "email"
	FieldDateOfBirth           = "date_of_birth"
	FieldAge                   = "age"
	FieldGender                = "gender"
	FieldTermsAccepted         = "termsAccepted"
	FieldPrivacyPolicyAccepted = "privacyPolicyAccepted"
	FieldPrivacySetting        = "privacySetting"
)

// Privacy setting tags.
const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
	PrivacyFriends = "friends"
)

// MinimumAge is the youngest age accepted by the registration form.
const MinimumAge = 18

// Definition bundles a schema with the remote endpoint it submits to.
type Definition struct {
	Name       string
	Title      string
	Schema     *schema.Schema
	SubmitPath string
	// UniqueField names the field whose availability is checked while the
	// user types. Empty disables the lookup.
	UniqueField string
}

// Registration returns the registration form. now feeds the minimum age rule;
// nil means time.Now.
func Registration(now func() time.Time) Definition {
	return Definition{
		Name:        "registration",
		Title:       "Create your account",
		SubmitPath:  "/users/",
		UniqueField: FieldEmail,
		Schema: schema.MustNew([]schema.FieldSpec{
			{
				Name:     FieldName,
				Label:    "Name",
				Type:     schema.FieldTypeString,
				Required: true,
				Sanitize: true,
			},
			{
				Name:     FieldEmail,
				Label:    "Email",
				Type:     schema.FieldTypeString,
				Required: true,
				Format:   schema.FormatEmail,
			},
			{
				Name:     FieldDateOfBirth,
				Label:    "Date of birth",
				Type:     schema.FieldTypeString,
				Required: true,
				Format:   schema.FormatDate,
				Rules:    []schema.Rule{schema.MinimumAge(MinimumAge, now, "You must be at least 18 years old")},
			},
			{
				Name:  FieldAge,
				Label: "Age",
				Type:  schema.FieldTypeInteger,
				Rules: []schema.Rule{schema.IntRange(0, 150, "Age must be between 0 and 150")},
			},
			{
				Name:    FieldGender,
				Label:   "Gender",
				Type:    schema.FieldTypeEnum,
				Options: []string{"male", "female"},
			},
			acceptTerms(),
			acceptPrivacyPolicy(),
			privacySetting(),
		}),
	}
}

// Privacy returns the simplified privacy-settings form.
func Privacy() Definition {
	return Definition{
		Name:       "privacy",
		Title:      "Privacy settings",
		SubmitPath: "/privacy-settings/",
		Schema: schema.MustNew([]schema.FieldSpec{
			privacySetting(),
			acceptPrivacyPolicy(),
		}),
	}
}

// Lookup returns a definition by name.
func Lookup(name string, now func() time.Time) (Definition, bool) {
	switch name {
	case "registration", "register":
		return Registration(now), true
	case "privacy":
		return Privacy(), true
	default:
		return Definition{}, false
	}
}

func acceptTerms() schema.FieldSpec {
	return schema.FieldSpec{
		Name:              FieldTermsAccepted,
		Label:             "I accept the terms of service",
		Type:              schema.FieldTypeBoolean,
		Required:          true,
		MustBeTrue:        true,
		MustBeTrueMessage: "You must accept the terms of service",
	}
}

func acceptPrivacyPolicy() schema.FieldSpec {
	return schema.FieldSpec{
		Name:              FieldPrivacyPolicyAccepted,
		Label:             "I accept the privacy policy",
		Type:              schema.FieldTypeBoolean,
		Required:          true,
		MustBeTrue:        true,
		MustBeTrueMessage: "You must accept the privacy policy",
	}
}

func privacySetting() schema.FieldSpec {
	return schema.FieldSpec{
		Name:     FieldPrivacySetting,
		Label:    "Privacy setting",
		Type:     schema.FieldTypeEnum,
		Required: true,
		Options:  []string{PrivacyPublic, PrivacyPrivate, PrivacyFriends},
		Default:  PrivacyPublic,
	}
}
