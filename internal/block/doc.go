// Package block implements the fixed-capacity physical block store:
// NumSlots slots of SlotSize bytes each, with an explicit free set.
package block
