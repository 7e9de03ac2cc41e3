// Package http exposes the coaching booking API over JSON.
//
// Routes are registered on a julienschmidt/httprouter router by NewRouter:
//   - /lesson-types and /lesson-types/:id: the lesson catalog. Reads are public
//     (inactive lesson types are only listed for administrators), writes require
//     the admin token.
//   - /availability/windows, /availability/exceptions: the coach calendar.
//     Reads are public, writes are admin only.
//   - /availability/slots?date=&lesson_type_id= and
//     /availability/days?from=&to=&lesson_type_id=: bookable slot queries.
//   - /athletes: public, rate limited registration plus admin management.
//   - /bookings: public, rate limited creation answering 201 or 409, plus admin
//     listing and status, payment and schedule transitions under /bookings/:id.
//   - /healthz: liveness with a database ping.
//
// Every error body has the shape {"error_code","message","errors"} where errors
// maps field names to validation messages.
package http
