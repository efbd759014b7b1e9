// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sau

// Attribute represents a security attribution.
type Attribute int

const (
	Secure Attribute = iota
	NonSecureCallable
	NonSecure
)

func (a Attribute) String() string {
	switch a {
	case Secure:
		return "S"
	case NonSecureCallable:
		return "NSC"
	case NonSecure:
		return "NS"
	default:
		return "?"
	}
}

// Attribution returns the security attribute of addr according to a region
// table, with the unit enabled.
//
// Addresses outside all enabled regions are Secure, overlapping regions are
// resolved in favour of the highest region index.
func Attribution(regions []Region, addr uint32) (attr Attribute, index int) {
	attr = Secure
	index = -1

	for i := range regions {
		r := &regions[i]

		if !r.Enabled || r.Index < index {
			continue
		}

		if r.Window().Contains(addr) {
			attr = r.Attribute()
			index = r.Index
		}
	}

	return
}
