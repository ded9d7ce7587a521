// Package domain holds the model types, sentinel errors, and collaborator
// interfaces shared across the room engine, transport, and HTTP layers.
package domain
