// Package model defines the checkout form's typed state: field names, the
// payment-method enumeration, the mutable Values record the submission
// controller owns, and the Order sum type produced by successful validation.
// Each Order variant carries exactly the fields relevant to its payment
// method, so card details only ever travel with a CardOrder.
package model
