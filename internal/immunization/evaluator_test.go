package immunization

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shc-verifier/internal/shc"
)

func immunizationCard(codes ...string) *shc.Payload {
	entries := []shc.BundleEntry{{Resource: shc.Resource{
		ResourceType: "Patient",
		Name:         []shc.HumanName{{Family: "Anyperson", Given: []string{"Jane"}}},
		BirthDate:    "1961-01-20",
	}}}
	for _, code := range codes {
		entries = append(entries, shc.BundleEntry{Resource: shc.Resource{
			ResourceType:       "Immunization",
			Status:             "completed",
			VaccineCode:        &shc.CodeableConcept{Coding: []shc.Coding{{System: "http://hl7.org/fhir/sid/cvx", Code: code}}},
			OccurrenceDateTime: "2021-03-01",
		}})
	}
	return &shc.Payload{
		Issuer: "https://example.org/issuer",
		VC: shc.VC{
			Type: []string{"https://smarthealth.cards#health-card", shc.ImmunizationType},
			CredentialSubject: shc.CredentialSubject{
				FHIRBundle: shc.FHIRBundle{ResourceType: "Bundle", Entry: entries},
			},
		},
	}
}

func TestManufacturerForCVX(t *testing.T) {
	assert.Equal(t, "Moderna", ManufacturerForCVX("207"))
	assert.Equal(t, "Pfizer", ManufacturerForCVX("208"))
	assert.Equal(t, "Janssen", ManufacturerForCVX("212"))
	assert.Equal(t, Unknown, ManufacturerForCVX("88"))
	assert.Equal(t, Unknown, ManufacturerForCVX(""))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		codes    []string
		complete bool
		reason   string
	}{
		{"two moderna doses", []string{"207", "207"}, true, ""},
		{"mixed recognized doses", []string{"207", "208"}, true, ""},
		{"single janssen counts double", []string{"212"}, true, ""},
		{"single dose short of series", []string{"208"}, false, ReasonIncomplete},
		{"unknown code skipped", []string{"88", "207"}, false, ReasonIncomplete},
		{"no immunizations", nil, false, ReasonIncomplete},
		{"unknown plus janssen", []string{"88", "212"}, true, ""},
		{"three doses", []string{"208", "208", "208"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := Evaluate(immunizationCard(tt.codes...))
			assert.Equal(t, tt.complete, eval.Complete)
			assert.Equal(t, tt.reason, eval.Reason)
		})
	}
}

func TestEvaluateRejectsNonImmunizationCards(t *testing.T) {
	card := immunizationCard("207", "207")
	card.VC.Type = []string{"https://smarthealth.cards#health-card", "https://smarthealth.cards#laboratory"}

	eval := Evaluate(card)
	assert.False(t, eval.Complete)
	assert.Equal(t, ReasonNotImmunization, eval.Reason)
}

func TestEntriesPreserveOrderAndResolveManufacturers(t *testing.T) {
	entries := Entries(immunizationCard("212", "88", "207"))
	assert.Equal(t, []Entry{
		{VaccineCode: "212", Manufacturer: "Janssen", DoseDate: "2021-03-01"},
		{VaccineCode: "88", Manufacturer: Unknown, DoseDate: "2021-03-01"},
		{VaccineCode: "207", Manufacturer: "Moderna", DoseDate: "2021-03-01"},
	}, entries)
}
