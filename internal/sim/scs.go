// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/GoTEE-cmse/cmse"
	"github.com/usbarmory/GoTEE-cmse/sau"
)

// SFSR fields
const (
	SFSR_INVEP     = 0
	SFSR_INVIS     = 1
	SFSR_INVER     = 2
	SFSR_AUVIOL    = 3
	SFSR_INVTRAN   = 4
	SFSR_LSPERR    = 5
	SFSR_SFARVALID = 6
)

// CFSR fields
const (
	CFSR_UNDEFINSTR = 16
	CFSR_INVSTATE   = 17
	CFSR_UNALIGNED  = 24
)

// HFSR fields
const (
	HFSR_FORCED = 30
)

type scs struct {
	sauCtrl    uint32
	sauRNR     uint32
	sauRBAR    [sau.MaxRegions]uint32
	sauRLAR    [sau.MaxRegions]uint32
	sauRegions int

	sfsr uint32
	sfar uint32
	cfsr uint32
	hfsr uint32

	aircr  uint32
	shcsr  uint32
	vtor   uint32
	vtorNS uint32
}

// VTORNonSecure returns the Non-secure vector table offset.
func (m *Machine) VTORNonSecure() uint32 {
	m.Lock()
	defer m.Unlock()

	return m.scs.vtorNS
}

// SetRegions sets the number of SAU regions reported by SAU_TYPE.
func (m *Machine) SetRegions(n int) {
	m.Lock()
	defer m.Unlock()

	m.scs.sauRegions = n
}

func (m *Machine) readSCS(addr uint32) uint32 {
	s := &m.scs

	switch addr {
	case cmse.SAU_CTRL:
		return s.sauCtrl
	case cmse.SAU_TYPE:
		return uint32(s.sauRegions)
	case cmse.SAU_RNR:
		return s.sauRNR
	case cmse.SAU_RBAR:
		return s.sauRBAR[s.sauRNR]
	case cmse.SAU_RLAR:
		return s.sauRLAR[s.sauRNR]
	case cmse.SAU_SFSR:
		return s.sfsr
	case cmse.SAU_SFAR:
		return s.sfar
	case cmse.SCB_CFSR:
		return s.cfsr
	case cmse.SCB_HFSR:
		return s.hfsr
	case cmse.SCB_AIRCR:
		return 0xfa05<<cmse.AIRCR_VECTKEY | s.aircr
	case cmse.SCB_SHCSR:
		return s.shcsr
	case cmse.SCB_VTOR:
		return s.vtor
	case cmse.SCB_NS_VTOR:
		return s.vtorNS
	case cmse.SYST_CSR, cmse.SYST_RVR, cmse.SYST_CVR, cmse.SYST_CALIB:
		return m.syst.read(m, addr)
	}

	return 0
}

func (m *Machine) writeSCS(addr uint32, val uint32) {
	s := &m.scs

	switch addr {
	case cmse.SAU_CTRL:
		s.sauCtrl = val & (1<<sau.CTRL_ENABLE | 1<<sau.CTRL_ALLNS)
		m.updateAttribution()
	case cmse.SAU_RNR:
		if int(val) < s.sauRegions {
			s.sauRNR = val
		}
	case cmse.SAU_RBAR:
		s.sauRBAR[s.sauRNR] = val &^ sau.AlignMask
		m.updateAttribution()
	case cmse.SAU_RLAR:
		s.sauRLAR[s.sauRNR] = val &^ (sau.AlignMask &^ (1<<sau.RLAR_ENABLE | 1<<sau.RLAR_NSC))
		m.updateAttribution()
	case cmse.SAU_SFSR:
		s.sfsr &^= val
	case cmse.SAU_SFAR:
		s.sfar = val
	case cmse.SCB_CFSR:
		s.cfsr &^= val
	case cmse.SCB_HFSR:
		s.hfsr &^= val
	case cmse.SCB_AIRCR:
		if val>>cmse.AIRCR_VECTKEY != cmse.AIRCR_VECTKEY_VAL {
			return
		}

		bits.Clear(&s.aircr, cmse.AIRCR_PRIS)
		bits.Clear(&s.aircr, cmse.AIRCR_BFHFNMINS)
		s.aircr |= val & (1<<cmse.AIRCR_PRIS | 1<<cmse.AIRCR_BFHFNMINS)
	case cmse.SCB_SHCSR:
		s.shcsr = val
	case cmse.SCB_VTOR:
		s.vtor = val &^ 0x7f
	case cmse.SCB_NS_VTOR:
		s.vtorNS = val &^ 0x7f
	case cmse.SYST_CSR, cmse.SYST_RVR, cmse.SYST_CVR:
		m.syst.write(m, addr, val)
	}
}

func (m *Machine) updateAttribution() {
	m.units = m.units[:0]

	for i := 0; i < m.scs.sauRegions; i++ {
		m.units = append(m.units, sau.Decode(i, m.scs.sauRBAR[i], m.scs.sauRLAR[i]))
	}
}
