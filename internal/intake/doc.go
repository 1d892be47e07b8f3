// Package intake turns raw input strings into validated, normalized and
// deduplicated URL entries.
//
// Both stages are pure: Validate never fails (an invalid input becomes an
// entry with Valid=false and a reason), and Dedupe only filters. Invalid
// entries are kept so that each of them still produces a failure record.
package intake
