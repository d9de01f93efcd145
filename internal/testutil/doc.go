// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing transcripts, capturing emitted events
// and scripting responder replies. They are not intended for production
// usage.
package testutil
