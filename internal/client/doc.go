// Package client is a Go client for the devicehub HTTP API.
//
// Errors returned by the server are mapped back onto the device package
// sentinels, so code written against device.Coordinator can switch to the
// remote API without changing its error handling:
//
//	token, err := c.Update(ctx, id, req)
//	if errors.Is(err, device.ErrConcurrencyConflict) {
//	    // re-read with c.Get and retry
//	}
//
// Validation failures come back as *device.ValidationError with the
// server's field list.
package client
