// Package picker runs one fetch cycle for a list of Instagram usernames.
//
// A run moves through Idle -> Validating -> Rejected | Fetching -> Exporting
// -> Idle. Usernames are processed sequentially, one provider call each;
// the outcome of every username is recorded in a new selection.Session:
//
//   - posts returned: a success result whose posts can be selected
//   - nothing usable (empty list, actor error items, unreadable body): an
//     empty result with a warning, contributing no export row
//   - request failure: a failed result with the error, contributing no row
//
// None of these stop the loop. Only an empty token or username list
// (rejected before any call) or a cancelled context ends a run early.
package picker
