// Package form implements the form state controller: it binds raw field
// values, runs schema validation on submit, hands valid records to a Gateway
// and folds the result back into field errors and a user-facing message.
//
// A submission validates the values in place and then moves from Idle to
// Submitting. Invalid values leave the status at Idle with errors published
// and no gateway call. A
// successful submission resets the values to their defaults; a failed one
// keeps them so the user does not lose input. Only one submission may be in
// flight; further calls get ErrSubmitInProgress.
//
// The unique field (for example an email address) is looked up for
// availability after a quiet window. Each lookup is tagged with an issuance
// number and the value it was issued for, and a response is applied only if
// both still match, so a slow response for an older value never overwrites a
// newer one. Availability is advisory and never blocks a submission.
package form
