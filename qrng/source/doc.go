// Package source defines the trial-source capability consumed by the
// generation loop and ships two substitutes: a CSPRNG-backed source and a
// seeded measurement simulator.
//
// Real devices and remote backends implement the same single-method
// TrialSource interface; see package remote for a QUIC-served source.
package source
