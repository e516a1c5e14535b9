// Copyright 2025 The cowsim Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cowinstrument

// Live shadow storage carrier.
//
// This file is compiled only with the cowinstrument build tag. Its twin,
// carrier_disabled.go, provides the same API as an empty struct. Both files
// must always change together: a field or method present in one and missing
// from the other breaks the build of one configuration.

package shadow

// Enabled reports whether shadow storage tracking is compiled in.
const Enabled = true

// Carrier embeds an optional shared shadow storage record in a storage object.
//
// The carrier owns one reference to its record and counts as one view of it.
//
// A Carrier must not be copied after construction: copies would share one
// owning reference. Mutations (Install, Drop) must be serialized per storage
// object by the caller.
type Carrier struct {
	shadowStorage *Shared
}

// NewCarrier creates a carrier taking over the caller's owning reference to s.
// s may be nil.
func NewCarrier(s *Shared) Carrier {
	s.attach()
	return Carrier{shadowStorage: s}
}

// ShadowStorage returns the installed record without changing its reference
// count, or nil when none is installed. For read-only inspection.
//
//go:nosplit
func (c *Carrier) ShadowStorage() *Shared {
	return c.shadowStorage
}

// ShadowStorageRef returns a new owning reference to the installed record, or
// nil when none is installed. The caller must Release it.
func (c *Carrier) ShadowStorageRef() *Shared {
	return c.shadowStorage.Retain()
}

// Install replaces the installed record with s, taking over the caller's
// owning reference to s.
//
// The carrier's reference to the previous record is handed back to the
// caller (nil if there was none), who must Release it.
func (c *Carrier) Install(s *Shared) *Shared {
	prev := c.shadowStorage
	prev.detach()
	s.attach()
	c.shadowStorage = s
	return prev
}

// Drop detaches and releases the installed record. The carrier reports absent
// afterwards.
func (c *Carrier) Drop() {
	prev := c.shadowStorage
	c.shadowStorage = nil
	prev.detach()
	prev.Release()
}
