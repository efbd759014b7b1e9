// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sau

import (
	"fmt"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/mem"
)

// SAU represents the Security Attribution Unit instance.
type SAU struct {
	// Core gives access to the System Control Space
	Core cmse.Core
	// Veneers is the address range reserved to NSC regions
	Veneers mem.Window
}

// Regions returns the number of regions implemented by the hardware.
func (hw *SAU) Regions() int {
	return int(hw.Core.Load(cmse.SAU_TYPE) & TYPE_SREGION)
}

// Enabled returns whether attribution is active.
func (hw *SAU) Enabled() bool {
	return hw.Core.Load(cmse.SAU_CTRL)&(1<<CTRL_ENABLE) != 0
}

// Configure validates and programs the region table, in index order, then
// enables the unit with a single control write followed by a barrier pair.
//
// Interrupts are suppressed for the duration of the programming so that no
// exception observes a partially configured unit. Invalid tables are rejected
// before any register write takes place.
func (hw *SAU) Configure(regions []Region) (err error) {
	if err = Validate(regions, hw.Veneers); err != nil {
		return
	}

	primask := hw.Core.DisableInterrupts()
	defer hw.Core.RestoreInterrupts(primask)

	if hw.Enabled() {
		return ErrLocked
	}

	sorted := Sorted(regions)
	n := hw.Regions()

	for _, r := range sorted {
		if r.Index >= n {
			return fmt.Errorf("region %d (%s), %d implemented: %w", r.Index, r.Name, n, ErrUnsupported)
		}
	}

	for _, r := range sorted {
		hw.Core.Store(cmse.SAU_RNR, uint32(r.Index))
		hw.Core.Store(cmse.SAU_RBAR, r.RBAR())
		hw.Core.Store(cmse.SAU_RLAR, r.RLAR())
	}

	hw.Core.Store(cmse.SAU_CTRL, 1<<CTRL_ENABLE)
	hw.Core.Barrier()

	return
}

// Read returns the region table as currently programmed in hardware.
func (hw *SAU) Read() (regions []Region) {
	n := hw.Regions()

	primask := hw.Core.DisableInterrupts()
	defer hw.Core.RestoreInterrupts(primask)

	for i := 0; i < n && i < MaxRegions; i++ {
		hw.Core.Store(cmse.SAU_RNR, uint32(i))

		rbar := hw.Core.Load(cmse.SAU_RBAR)
		rlar := hw.Core.Load(cmse.SAU_RLAR)

		regions = append(regions, Decode(i, rbar, rlar))
	}

	return
}

// Decode converts RBAR/RLAR register values to a region descriptor.
func Decode(index int, rbar uint32, rlar uint32) Region {
	return Region{
		Index:   index,
		Base:    rbar &^ AlignMask,
		Limit:   rlar | AlignMask,
		NSC:     rlar&(1<<RLAR_NSC) != 0,
		Enabled: rlar&(1<<RLAR_ENABLE) != 0,
	}
}
