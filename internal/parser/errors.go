package parser

import "errors"

// errNotJSONObject is returned when a JSON body is not an object.
var errNotJSONObject = errors.New("expected a JSON object")
