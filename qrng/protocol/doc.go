// Package protocol defines the wire format spoken between a remote trial
// source and its clients: length-prefixed frames carrying DRAW requests,
// signed BATCH responses and ERROR reports.
package protocol
