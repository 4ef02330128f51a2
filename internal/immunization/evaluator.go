// Package immunization decides whether a verified card satisfies the
// primary-series policy: 2 doses of any listed COVID-19 vaccine, or 1 dose
// of Janssen, per the CDC recommendation the event operates under.
package immunization

import "shc-verifier/internal/shc"

const (
	// ReasonNotImmunization is returned for lab-result and other
	// non-immunization card types.
	ReasonNotImmunization = "card is not an immunization record"

	// ReasonIncomplete is returned when the counted doses fall short of a
	// full primary series.
	ReasonIncomplete = "unable to verify a full primary series immunization"

	requiredDoses = 2
)

// Entry is a read-only projection of one vaccination event on a card.
type Entry struct {
	VaccineCode  string
	Manufacturer string
	DoseDate     string
}

// Evaluation reports whether a card satisfies the primary-series policy.
type Evaluation struct {
	Complete bool
	Reason   string
}

// Entries projects the card's vaccination events, resolving each CVX code
// to a manufacturer. Source order is preserved.
func Entries(p *shc.Payload) []Entry {
	imms := p.Immunizations()
	out := make([]Entry, 0, len(imms))
	for _, im := range imms {
		out = append(out, Entry{
			VaccineCode:  im.CVXCode,
			Manufacturer: ManufacturerForCVX(im.CVXCode),
			DoseDate:     im.DoseDate,
		})
	}
	return out
}

// Evaluate checks the card type and counts qualifying doses. Janssen counts
// as an extra dose so a single shot reaches the two-dose threshold; entries
// with an unrecognized code are skipped entirely.
func Evaluate(p *shc.Payload) Evaluation {
	if !p.IsImmunizationRecord() {
		return Evaluation{Reason: ReasonNotImmunization}
	}

	doses := 0
	for _, entry := range Entries(p) {
		if entry.Manufacturer == Unknown {
			continue
		}
		if entry.Manufacturer == janssen {
			doses++
		}
		doses++
	}
	if doses < requiredDoses {
		return Evaluation{Reason: ReasonIncomplete}
	}
	return Evaluation{Complete: true}
}
