// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cortexm implements cmse.Core on ARMv8-M Mainline processors
// (e.g. Cortex-M33) running in Secure state, with TinyGo.
//
// The package is only available when building with `tinygo` for a `cortexm`
// target, it is the single place where the Security Extension instructions
// (`bxns`, `blxns`, `msr MSP_NS`) are issued.
package cortexm
