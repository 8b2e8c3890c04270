// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

// Section names.
const (
	SectionAbbrev = ".debug_abbrev"
	SectionInfo   = ".debug_info"
	SectionLine   = ".debug_line"
	SectionLoc    = ".debug_loc"
	SectionRanges = ".debug_ranges"
	SectionStr    = ".debug_str"
)

type tag uint64

const (
	tagCompileUnit tag = 0x11
	tagSubprogram  tag = 0x2e
)

type attr uint64

const (
	atLocation           attr = 0x02
	atName               attr = 0x03
	atStmtList           attr = 0x10
	atLowPC              attr = 0x11
	atHighPC             attr = 0x12
	atStringLength       attr = 0x19
	atReturnAddr         attr = 0x2a
	atDataMemberLocation attr = 0x38
	atFrameBase          attr = 0x40
	atSegment            attr = 0x46
	atStaticLink         attr = 0x48
	atUseLocation        attr = 0x4a
	atVtableElemLocation attr = 0x4d
	atEntryPC            attr = 0x52
	atRanges             attr = 0x55
	atLinkageName        attr = 0x6e
	atMIPSLinkageName    attr = 0x2007
)

// locationClass attributes hold a location expression or a location list
// pointer.
func (a attr) locationClass() bool {
	switch a {
	case atLocation, atStringLength, atReturnAddr, atDataMemberLocation, atFrameBase,
		atSegment, atStaticLink, atUseLocation, atVtableElemLocation:
		return true
	}
	return false
}

type form uint64

const (
	formAddr          form = 0x01
	formBlock2        form = 0x03
	formBlock4        form = 0x04
	formData2         form = 0x05
	formData4         form = 0x06
	formData8         form = 0x07
	formString        form = 0x08
	formBlock         form = 0x09
	formBlock1        form = 0x0a
	formData1         form = 0x0b
	formFlag          form = 0x0c
	formSdata         form = 0x0d
	formStrp          form = 0x0e
	formUdata         form = 0x0f
	formRefAddr       form = 0x10
	formRef1          form = 0x11
	formRef2          form = 0x12
	formRef4          form = 0x13
	formRef8          form = 0x14
	formRefUdata      form = 0x15
	formIndirect      form = 0x16
	formSecOffset     form = 0x17
	formExprloc       form = 0x18
	formFlagPresent   form = 0x19
	formRefSig8       form = 0x20
	formImplicitConst form = 0x21
)

func (f form) constant() bool {
	switch f {
	case formData1, formData2, formData4, formData8, formSdata, formUdata:
		return true
	}
	return false
}

func (f form) block() bool {
	switch f {
	case formBlock1, formBlock2, formBlock4, formBlock:
		return true
	}
	return false
}

func (f form) localRef() bool {
	switch f {
	case formRef1, formRef2, formRef4, formRef8, formRefUdata:
		return true
	}
	return false
}

// Line number program opcodes.
const (
	lnsCopy             = 1
	lnsAdvancePC        = 2
	lnsAdvanceLine      = 3
	lnsSetFile          = 4
	lnsSetColumn        = 5
	lnsNegateStmt       = 6
	lnsSetBasicBlock    = 7
	lnsConstAddPC       = 8
	lnsFixedAdvancePC   = 9
	lnsSetPrologueEnd   = 10
	lnsSetEpilogueBegin = 11
	lnsSetISA           = 12

	lneEndSequence      = 1
	lneSetAddress       = 2
	lneDefineFile       = 3
	lneSetDiscriminator = 4
)

// Expression opcodes with operands, and those without which appear in wasm
// DWARF.
const (
	opAddr              = 0x03
	opConst1u           = 0x08
	opConst1s           = 0x09
	opConst2u           = 0x0a
	opConst2s           = 0x0b
	opConst4u           = 0x0c
	opConst4s           = 0x0d
	opConst8u           = 0x0e
	opConst8s           = 0x0f
	opConstu            = 0x10
	opConsts            = 0x11
	opPick              = 0x15
	opPlusUconst        = 0x23
	opBra               = 0x28
	opSkip              = 0x2f
	opLit0              = 0x30
	opBreg0             = 0x70
	opBreg31            = 0x8f
	opRegx              = 0x90
	opFbreg             = 0x91
	opBregx             = 0x92
	opPiece             = 0x93
	opDerefSize         = 0x94
	opXderefSize        = 0x95
	opNop               = 0x96
	opPushObjectAddress = 0x97
	opCall2             = 0x98
	opCall4             = 0x99
	opCallRef           = 0x9a
	opFormTLSAddress    = 0x9b
	opCallFrameCFA      = 0x9c
	opBitPiece          = 0x9d
	opImplicitValue     = 0x9e
	opStackValue        = 0x9f
	opEntryValue        = 0xa3
	opGNUPushTLSAddress = 0xe0
	opWasmLocation      = 0xed
	opGNUEntryValue     = 0xf3
)

// Output properties.
const (
	addrSize = 8

	outLineBase  = -5
	outLineRange = 14
)

// Special opcodes start after the standard opcodes of the version.
func outOpcodeBase(version uint16) uint8 {
	if version < 3 {
		return lnsFixedAdvancePC + 1
	}
	return lnsSetISA + 1
}

var standardOpcodeLengths = [lnsSetISA]uint8{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}
