package immunization

// Unknown marks a vaccine code outside the recognized COVID-19 set. Unknown
// entries never count toward the primary series.
const Unknown = "unknown"

const janssen = "Janssen"

// cvxManufacturers maps COVID-19 CVX vaccine codes to their manufacturer.
// This mirrors the code set the card decoder pre-loads, so entries outside
// it need no further validation here.
var cvxManufacturers = map[string]string{
	"207": "Moderna",
	"208": "Pfizer",
	"210": "AstraZeneca",
	"211": "Novavax",
	"212": janssen,
	"217": "Pfizer",
	"218": "Pfizer",
	"219": "Pfizer",
	"221": "Moderna",
	"228": "Moderna",
}

// ManufacturerForCVX resolves a CVX vaccine code to its manufacturer,
// returning Unknown for codes outside the recognized set.
func ManufacturerForCVX(code string) string {
	if m, ok := cvxManufacturers[code]; ok {
		return m
	}
	return Unknown
}
