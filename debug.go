// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmdwarf

import (
	"fmt"
	"os"
)

const debug = false

func debugf(format string, args ...interface{}) {
	if debug {
		fmt.Fprintf(os.Stderr, "wasmdwarf: "+format+"\n", args...)
	}
}
