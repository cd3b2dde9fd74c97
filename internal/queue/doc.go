// Package queue implements the durable filesystem buffer for notifications.
// Pending records live as JSON files whose names encode priority, arrival
// time, kind, and a payload hash, so a lexical directory listing doubles as
// the processing order. Terminal outcomes either delete the file or move it
// into the errors or no_reply bucket.
package queue
