// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "fmt"

// hexValue renders v as a "0x"-prefixed hexadecimal string, used anywhere
// serialization or display needs a fallback for a value with no named
// variant.
func hexValue(v uint64) string {
	return fmt.Sprintf("%#x", v)
}
