package fhir

import "strings"

// PrefixMap compresses concept URIs to CURIE-style codes.
type PrefixMap map[string]string

// DefaultPrefixMap covers the vocabularies the registry ships with plus a few
// common RDF namespaces. OBO PURLs are handled structurally by Compress, so
// only non-OBO stems need entries here.
func DefaultPrefixMap() PrefixMap {
	return PrefixMap{
		"https://loinc.org/":                            "LOINC:",
		"http://purl.bioontology.org/ontology/RXNORM/":  "RXNORM:",
		"https://omim.org/entry/":                       "OMIM:",
		"http://www.w3.org/2000/01/rdf-schema#":         "rdfs:",
		"http://www.w3.org/2002/07/owl#":                "owl:",
		"http://purl.org/dc/terms/":                     "dcterms:",
		"http://www.geneontology.org/formats/oboInOwl#": "oboInOwl:",
	}
}

const oboStem = "http://purl.obolibrary.org/obo/"

// Compress returns the CURIE for uri, or the uri unchanged when no prefix
// applies. OBO PURLs compress by their "PREFIX_local" convention:
// http://purl.obolibrary.org/obo/MONDO_0005011 becomes MONDO:0005011.
func (m PrefixMap) Compress(uri string) string {
	for stem, prefix := range m {
		if strings.HasPrefix(uri, stem) {
			return prefix + uri[len(stem):]
		}
	}
	if rest, ok := strings.CutPrefix(uri, oboStem); ok {
		if prefix, local, found := strings.Cut(rest, "_"); found && prefix != "" {
			return prefix + ":" + local
		}
		return rest
	}
	return uri
}

// LocalName is used for predicate property codes: the fragment or final path
// segment of a predicate URI, or the input itself for bare names like is_a.
func LocalName(pred string) string {
	if i := strings.LastIndexAny(pred, "#/"); i >= 0 && i < len(pred)-1 {
		return pred[i+1:]
	}
	return pred
}
