package graph

import "strings"

// XSDString is the fallback datatype for every unrecognized name.
const XSDString IRI = XSDNamespace + "string"

// xsdNames is the allow-list of datatype names a column may declare.
var xsdNames = []string{
	"float", "double", "int", "long", "short", "byte",
	"unsignedByte", "unsignedShort", "unsignedInt", "unsignedLong",
	"decimal", "integer", "nonPositiveInteger", "nonNegativeInteger",
	"positiveInteger", "negativeInteger",
	"boolean", "string", "normalizedString", "anyURI", "token",
	"Name", "QName", "language", "NMTOKEN", "NMTOKENS", "ENTITY", "ENTITIES",
	"ID", "IDREF", "IDREFS", "NCName", "NOTATION",
	"hexBinary", "base64Binary",
	"date", "time", "dateTime", "duration",
	"gDay", "gMonth", "gYear", "gYearMonth", "gMonthDay",
}

var xsdAllowed = func() map[string]IRI {
	m := make(map[string]IRI, len(xsdNames))
	for _, n := range xsdNames {
		m[n] = IRI(XSDNamespace + n)
	}
	return m
}()

// DatatypeNames returns the recognized datatype names in declaration order.
func DatatypeNames() []string {
	out := make([]string, len(xsdNames))
	copy(out, xsdNames)
	return out
}

// LookupDatatype resolves a datatype name against the allow-list.
// Bare names ("int"), prefixed names ("xsd:int") and full XSD IRIs are accepted.
func LookupDatatype(name string) (IRI, bool) {
	name = strings.TrimSpace(name)
	switch {
	case strings.HasPrefix(name, XSDNamespace):
		name = strings.TrimPrefix(name, XSDNamespace)
	case strings.HasPrefix(name, "xsd:"):
		name = strings.TrimPrefix(name, "xsd:")
	}
	dt, ok := xsdAllowed[name]
	return dt, ok
}

// ResolveDatatype is LookupDatatype with the xsd:string fallback.
func ResolveDatatype(name string) IRI {
	if dt, ok := LookupDatatype(name); ok {
		return dt
	}
	return XSDString
}
