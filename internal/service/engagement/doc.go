// Package engagement implements contact registration and open/click tracking.
//
// The service layer contains all business logic for issuing tracking ids,
// recording engagement events, and reporting aggregate statistics. It depends
// on the Repository interface defined in this package and never imports
// net/http or database/sql directly.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package engagement
