package filing

// companyNames maps CIKs to standardized display names.
var companyNames = map[string]string{
	"0000051143": "International Business Machines Corp",
	"0001318605": "Tesla Inc",
}

// StandardizedCompanyName returns the standardized display name for a
// zero-padded CIK, if one is known.
func StandardizedCompanyName(cik string) (string, bool) {
	name, ok := companyNames[cik]
	return name, ok
}
