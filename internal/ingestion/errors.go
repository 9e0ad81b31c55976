package ingestion

import "fmt"

type FetchErrorKind string

const (
	// KindTransport covers network failures, non-2xx responses and
	// provider-level rejections (revoked key, unknown symbol).
	KindTransport FetchErrorKind = "transport"
	// KindMalformed means the body of a 2xx response did not decode.
	KindMalformed FetchErrorKind = "malformed"
	// KindRateLimited means the provider embedded a throttling notice in
	// an otherwise successful response. Remediation differs from transport
	// failure: back off and lengthen the throttle, do not retry immediately.
	KindRateLimited FetchErrorKind = "rate_limited"
)

// FetchError is a typed failure from the provider client.
type FetchError struct {
	Kind   FetchErrorKind
	Symbol string
	Err    error
	Detail string
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %s", e.Symbol, e.Kind, e.Detail)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError means the payload decoded but did not contain a usable series.
// Distinct from an empty series, which is not an error.
type ParseError struct {
	Symbol string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Symbol, e.Reason)
}

// WriteError is a destination transaction failure. The transaction has been
// rolled back; no partial row set for the symbol is left committed.
type WriteError struct {
	Kind   string
	Symbol string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("upsert %s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
