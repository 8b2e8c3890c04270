// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

import (
	"strings"
)

// CustomContentLoader processes a custom section's payload (excluding the
// name).  The content slice must not be modified.
type CustomContentLoader func(sectionName string, content []byte) error

// CustomLoaders dispatch custom sections by name.  A key ending with '*'
// matches names with the preceding prefix.  Exact matches take precedence.
type CustomLoaders map[string]CustomContentLoader

func (m CustomLoaders) lookup(name string) CustomContentLoader {
	if f := m[name]; f != nil {
		return f
	}

	for key, f := range m {
		if prefix := strings.TrimSuffix(key, "*"); prefix != key && strings.HasPrefix(name, prefix) {
			return f
		}
	}

	return nil
}

// CustomSections collects custom section contents by name.  A later section
// with the same name replaces an earlier one.
type CustomSections struct {
	Sections map[string][]byte
}

func (cs *CustomSections) Load(name string, content []byte) error {
	if cs.Sections == nil {
		cs.Sections = make(map[string][]byte)
	}

	cs.Sections[name] = append([]byte(nil), content...)
	return nil
}
