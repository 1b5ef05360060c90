package utils

import (
	"strings"

	"valuator/internal/model"
)

// ResolveAmenity maps a user-typed amenity term ("Swimming Pool", "aircon",
// "lift") onto an id of the domain's catalog. Exact id, label and alias
// matches win over substring matches; the first catalog entry wins ties.
func ResolveAmenity(domain *model.Domain, term string) (string, bool) {
	needle := normalizeTerm(term)
	if needle == "" || domain == nil {
		return "", false
	}

	for _, a := range domain.Amenities {
		if needle == a.ID || needle == normalizeTerm(a.Label) {
			return a.ID, true
		}
		for _, alias := range a.Aliases {
			if needle == normalizeTerm(alias) {
				return a.ID, true
			}
		}
	}

	for _, a := range domain.Amenities {
		if FuzzyMatchAmenity(needle, a) {
			return a.ID, true
		}
	}

	return "", false
}

// FuzzyMatchAmenity reports whether the search term loosely names the amenity
func FuzzyMatchAmenity(searchTerm string, amenity model.Amenity) bool {
	searchLower := normalizeTerm(searchTerm)
	if searchLower == "" {
		return false
	}

	names := append([]string{amenity.ID, amenity.Label}, amenity.Aliases...)
	for _, name := range names {
		nameLower := normalizeTerm(name)
		if nameLower == "" {
			continue
		}
		if strings.Contains(nameLower, searchLower) || strings.Contains(searchLower, nameLower) {
			return true
		}
	}

	return false
}

func normalizeTerm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
