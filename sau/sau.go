// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sau implements a driver for the ARMv8-M Security Attribution Unit
// (SAU), partitioning the address space in Secure, Non-secure and
// Non-secure Callable memory.
//
// The unit is programmed once, during Secure boot, and never re-partitioned
// afterwards.
package sau

import (
	"errors"
	"fmt"
	"sort"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/GoTEE-cmse/mem"
)

// SAU registers fields
const (
	CTRL_ENABLE = 0
	CTRL_ALLNS  = 1

	RLAR_ENABLE = 0
	RLAR_NSC    = 1

	TYPE_SREGION = 0xff
)

const (
	// MaxRegions is the architectural ceiling of SAU regions.
	MaxRegions = 8
	// Align is the region boundary granularity.
	Align = 32
	// AlignMask covers the address bits ignored by RBAR/RLAR.
	AlignMask = Align - 1
)

var (
	ErrIndex          = errors.New("invalid region index")
	ErrDuplicate      = errors.New("duplicate region index")
	ErrTooMany        = errors.New("too many regions")
	ErrOrder          = errors.New("region base exceeds limit")
	ErrMisaligned     = errors.New("region boundary not 32-byte aligned")
	ErrNSCContainment = errors.New("NSC region outside of veneer window")
	ErrNSCOverlap     = errors.New("NSC region overlaps Non-secure region")
	ErrUnsupported    = errors.New("region index not implemented by hardware")
	ErrLocked         = errors.New("SAU already enabled")
)

// Region represents an SAU region descriptor.
type Region struct {
	// Name is an informational label
	Name string `toml:"name"`
	// Index is the hardware region number, on overlap the highest enabled
	// index determines the attribution.
	Index int `toml:"index"`
	// Base is the first address of the region (32-byte aligned)
	Base uint32 `toml:"base"`
	// Limit is the last address of the region (inclusive, its low 5 bits
	// must be set)
	Limit uint32 `toml:"limit"`
	// NSC flags the region as Non-secure Callable rather than Non-secure
	NSC bool `toml:"nsc"`
	// Enabled reports whether the region takes part in attribution
	Enabled bool `toml:"enabled"`
}

// Window returns the address range covered by the region.
func (r *Region) Window() mem.Window {
	return mem.Window{Start: r.Base, End: r.Limit}
}

// Attribute returns the security attribute assigned by the region.
func (r *Region) Attribute() Attribute {
	if r.NSC {
		return NonSecureCallable
	}

	return NonSecure
}

// RBAR returns the Region Base Address Register value.
func (r *Region) RBAR() uint32 {
	return r.Base &^ AlignMask
}

// RLAR returns the Region Limit Address Register value.
func (r *Region) RLAR() (rlar uint32) {
	rlar = r.Limit &^ AlignMask

	if r.NSC {
		bits.Set(&rlar, RLAR_NSC)
	}

	if r.Enabled {
		bits.Set(&rlar, RLAR_ENABLE)
	}

	return
}

func (r *Region) String() string {
	attr := "NS"

	if r.NSC {
		attr = "NSC"
	}

	return fmt.Sprintf("SAU:%d %v %-3s enabled:%v %s", r.Index, r.Window(), attr, r.Enabled, r.Name)
}

// Validate checks a single region descriptor.
func (r *Region) Validate() error {
	if r.Index < 0 || r.Index >= MaxRegions {
		return ErrIndex
	}

	if r.Base > r.Limit {
		return ErrOrder
	}

	if r.Base&AlignMask != 0 || r.Limit&AlignMask != AlignMask {
		return ErrMisaligned
	}

	return nil
}

// Validate checks a region table against the descriptor invariants, NSC
// regions must be enclosed by the veneer window and must not overlap any
// other enabled Non-secure region.
func Validate(regions []Region, veneers mem.Window) (err error) {
	var seen [MaxRegions]bool

	if len(regions) > MaxRegions {
		return ErrTooMany
	}

	for i := range regions {
		r := &regions[i]

		if err = r.Validate(); err != nil {
			return fmt.Errorf("region %d (%s): %w", r.Index, r.Name, err)
		}

		if seen[r.Index] {
			return fmt.Errorf("region %d (%s): %w", r.Index, r.Name, ErrDuplicate)
		}

		seen[r.Index] = true
	}

	for i := range regions {
		r := &regions[i]

		if !r.Enabled || !r.NSC {
			continue
		}

		if !veneers.Encloses(r.Window()) {
			return fmt.Errorf("region %d (%s) %v, window %v: %w", r.Index, r.Name, r.Window(), veneers, ErrNSCContainment)
		}

		for j := range regions {
			o := &regions[j]

			if !o.Enabled || o.NSC {
				continue
			}

			if r.Window().Overlaps(o.Window()) {
				return fmt.Errorf("region %d (%s) and %d (%s): %w", r.Index, r.Name, o.Index, o.Name, ErrNSCOverlap)
			}
		}
	}

	return
}

// Sorted returns a copy of the region table in index order.
func Sorted(regions []Region) []Region {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	return sorted
}
