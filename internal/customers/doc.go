// Package customers loads the list of customers a validation run can be
// started for.
package customers
