// Copyright 2025 The cowsim Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !cowinstrument

// No-op shadow storage carrier.
//
// This file is compiled when the cowinstrument build tag is absent. The
// carrier has no fields, so it occupies no space inside the storage object,
// and every accessor reports "absent".

package shadow

// Enabled reports whether shadow storage tracking is compiled in.
const Enabled = false

// Carrier is the compiled-out shadow storage carrier. It is always empty.
type Carrier struct{}

// NewCarrier discards s, releasing the caller's owning reference to it.
func NewCarrier(s *Shared) Carrier {
	s.Release()
	return Carrier{}
}

// ShadowStorage always returns nil.
//
//go:nosplit
func (*Carrier) ShadowStorage() *Shared {
	return nil
}

// ShadowStorageRef always returns nil.
//
//go:nosplit
func (*Carrier) ShadowStorageRef() *Shared {
	return nil
}

// Install discards s, releasing the caller's owning reference to it, and
// returns nil.
func (*Carrier) Install(s *Shared) *Shared {
	s.Release()
	return nil
}

// Drop does nothing.
func (*Carrier) Drop() {}
