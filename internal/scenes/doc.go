// Package scenes converts a conversation transcript plus participant labels
// into a validated scene list. Pairing is canonicalized against the declared
// participants rather than trusting the model, and scenes without verbatim
// evidence quotes are dropped before they can reach media generation.
package scenes
