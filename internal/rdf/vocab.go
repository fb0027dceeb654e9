package rdf

// Namespaces used by the provenance model.
const (
	NSProv    = "http://www.w3.org/ns/prov#"
	NSOCO     = "https://w3id.org/oc/ontology/"
	NSDCTerms = "http://purl.org/dc/terms/"
	NSXSD     = "http://www.w3.org/2001/XMLSchema#"
	NSRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// Vocabulary terms.
const (
	RDFType IRI = NSRDF + "type"

	XSDString   IRI = NSXSD + "string"
	XSDDateTime IRI = NSXSD + "dateTime"

	ProvEntity            IRI = NSProv + "Entity"
	ProvSpecializationOf  IRI = NSProv + "specializationOf"
	ProvGeneratedAtTime   IRI = NSProv + "generatedAtTime"
	ProvInvalidatedAtTime IRI = NSProv + "invalidatedAtTime"
	ProvWasAttributedTo   IRI = NSProv + "wasAttributedTo"
	ProvHadPrimarySource  IRI = NSProv + "hadPrimarySource"
	ProvWasDerivedFrom    IRI = NSProv + "wasDerivedFrom"

	OCOHasUpdateQuery IRI = NSOCO + "hasUpdateQuery"

	DCTermsDescription IRI = NSDCTerms + "description"
)
