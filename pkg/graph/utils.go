package graph

import (
	"regexp"
	"strings"
)

// Node types and property names shared across sources feeding the graph store.
const (
	TypePublication = "publication"
	TypeResearcher  = "researcher"

	PropertyKey           = "key"
	PropertyDOI           = "doi"
	PropertyURL           = "url"
	PropertyTitle         = "title"
	PropertyPublishedYear = "published_year"
	PropertyFirstName     = "first_name"
	PropertyLastName      = "last_name"
	PropertyFullName      = "full_name"
	PropertyORCID         = "orcid_id"
	PropertyAuthors       = "authors"

	RelationshipRelatedTo = "relatedTo"
)

const doiURIPrefix = "http://dx.doi.org/"

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// ExtractDOI extracts a normalized DOI from a raw reference string. It
// tolerates bare DOIs, DOI-as-URL forms and surrounding text, and returns ""
// for strings carrying no recognizable DOI.
func ExtractDOI(raw string) string {
	for _, match := range doiPattern.FindAllString(raw, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// GenerateDOIURI returns the canonical resolver URI for a DOI.
func GenerateDOIURI(doi string) string {
	return doiURIPrefix + doi
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}
