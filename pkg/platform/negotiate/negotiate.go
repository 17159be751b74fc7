// Package negotiate maps an Accept header onto the two response forms the
// service offers: JSON data or a browser document.
package negotiate

import (
	"github.com/munnerz/goautoneg"
)

// Representation is the response form a caller prefers.
type Representation int

const (
	// Data is the JSON payload.
	Data Representation = iota
	// Document is a browser page.
	Document
)

func (r Representation) String() string {
	if r == Document {
		return "document"
	}
	return "data"
}

const (
	mediaTypeJSON = "application/json"
	mediaTypeHTML = "text/html"
)

// offered is ordered so that wildcard Accept headers resolve to data.
var offered = []string{mediaTypeJSON, mediaTypeHTML}

// Preferred parses an Accept header. Anything that does not clearly prefer
// HTML gets data.
func Preferred(accept string) Representation {
	if accept == "" {
		return Data
	}
	if goautoneg.Negotiate(accept, offered) == mediaTypeHTML {
		return Document
	}
	return Data
}
