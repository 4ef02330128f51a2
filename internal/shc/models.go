package shc

import (
	"fmt"
	"time"
)

// ImmunizationType is the credential type marker for immunization cards, as
// opposed to lab-result cards, which this system does not accept.
const ImmunizationType = "https://smarthealth.cards#immunization"

// Payload is the decoded claim set of a SMART Health Card JWS.
type Payload struct {
	Issuer     string  `json:"iss"`
	NotBefore  float64 `json:"nbf,omitempty"`
	Expiration float64 `json:"exp,omitempty"`
	VC         VC      `json:"vc"`
}

// VC is the verifiable-credential envelope inside the payload.
type VC struct {
	Type              []string          `json:"type"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

type CredentialSubject struct {
	FHIRVersion string     `json:"fhirVersion"`
	FHIRBundle  FHIRBundle `json:"fhirBundle"`
}

type FHIRBundle struct {
	ResourceType string        `json:"resourceType"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	FullURL  string   `json:"fullUrl"`
	Resource Resource `json:"resource"`
}

// Resource is the union of the FHIR resource fields this engine reads.
// Cards carry heavily trimmed resources, so one struct covers both the
// Patient and Immunization shapes.
type Resource struct {
	ResourceType       string           `json:"resourceType"`
	Name               []HumanName      `json:"name,omitempty"`
	BirthDate          string           `json:"birthDate,omitempty"`
	Status             string           `json:"status,omitempty"`
	VaccineCode        *CodeableConcept `json:"vaccineCode,omitempty"`
	OccurrenceDateTime string           `json:"occurrenceDateTime,omitempty"`
	Patient            *Reference       `json:"patient,omitempty"`
}

type HumanName struct {
	Family string   `json:"family"`
	Given  []string `json:"given"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding"`
}

type Coding struct {
	System string `json:"system"`
	Code   string `json:"code"`
}

type Reference struct {
	Reference string `json:"reference"`
}

// Patient is the identity embedded in a card.
type Patient struct {
	GivenNames  []string
	FamilyName  string
	DateOfBirth time.Time // date only, UTC
}

// Immunization is one vaccination event on a card. DoseDate is kept as the
// source string; nothing downstream orders by it.
type Immunization struct {
	CVXCode  string
	DoseDate string
}

// IsImmunizationRecord reports whether the credential types mark this card
// as an immunization record.
func (p *Payload) IsImmunizationRecord() bool {
	for _, t := range p.VC.Type {
		if t == ImmunizationType {
			return true
		}
	}
	return false
}

// Patient extracts the patient identity from the FHIR bundle.
func (p *Payload) Patient() (*Patient, error) {
	for _, entry := range p.VC.CredentialSubject.FHIRBundle.Entry {
		if entry.Resource.ResourceType != "Patient" {
			continue
		}
		if len(entry.Resource.Name) == 0 {
			return nil, fmt.Errorf("patient resource has no name")
		}
		dob, err := time.ParseInLocation("2006-01-02", entry.Resource.BirthDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("patient birth date %q: %w", entry.Resource.BirthDate, err)
		}
		name := entry.Resource.Name[0]
		return &Patient{
			GivenNames:  append([]string(nil), name.Given...),
			FamilyName:  name.Family,
			DateOfBirth: dob,
		}, nil
	}
	return nil, fmt.Errorf("no patient resource in bundle")
}

// Immunizations extracts the vaccination events from the FHIR bundle, in
// source order.
func (p *Payload) Immunizations() []Immunization {
	var out []Immunization
	for _, entry := range p.VC.CredentialSubject.FHIRBundle.Entry {
		r := entry.Resource
		if r.ResourceType != "Immunization" || r.VaccineCode == nil || len(r.VaccineCode.Coding) == 0 {
			continue
		}
		out = append(out, Immunization{
			CVXCode:  r.VaccineCode.Coding[0].Code,
			DoseDate: r.OccurrenceDateTime,
		})
	}
	return out
}
