// Derived from cmd/internal/ld/pobj.go's Ldmain flag wiring, re-architected
// per spec §9 ("thread the linker context explicitly through each phase
// function") onto github.com/spf13/viper the way Manu343726-cucaracha and
// davejbax-pixie bind their own CLI configuration, with
// github.com/xyproto/env/v2 (xyproto-flapc's sole dependency) supplying
// OS/arch-derived defaults before flag/file overrides apply.
package ld

import (
	"encoding/binary"
	"fmt"

	env "github.com/xyproto/env/v2"
	"github.com/spf13/viper"
)

// HeadType identifies the target executable container format (spec §6,
// "Configuration globals: HEADTYPE").
type HeadType int

const (
	HeadUnknown HeadType = iota
	HeadELF
	HeadWindows
	HeadDarwin
	HeadPlan9
)

// Config carries every "Configuration globals" entry named in spec §6. It
// replaces the teacher's package-level HEADTYPE/thechar/flag_shared/debug
// vars; every phase function receives one explicitly instead of reading
// globals.
type Config struct {
	HeadType HeadType
	Thechar  byte // architecture tag: '6' (amd64), '8' (x86), '5' (arm)

	FlagShared bool // shared-library mode (spec §4.3 ELF/shared path, §4.4 DATARELRO)
	IsObj      bool // emitting an object file rather than an executable

	PtrSize   int32
	FuncAlign int32

	InitText int64 // INITTEXT: starting virtual address of the text segment
	InitRnd  int32 // INITRND: segment address rounding quantum
	Headr    int64 // HEADR: size reserved for the file header
	PEAlign  int64 // PEFILEALIGN: PE file-alignment boundary

	Debug map[byte]int // debug[] verbosity flags, keyed by flag letter
}

// ByteOrder returns the binary.ByteOrder implied by Thechar. All three
// supported architectures (amd64, x86, arm) are little-endian.
func (c *Config) ByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}

// defaultConfigForArch fills in the PtrSize/FuncAlign/Thechar/InitText
// defaults for one of the three supported architectures, the way
// xyproto-flapc's dependencies.go resolves toolchain defaults from the
// environment before letting explicit flags override them.
func defaultConfigForArch(thechar byte) (*Config, error) {
	c := &Config{
		Thechar:  thechar,
		HeadType: HeadELF,
		InitRnd:  4096,
		Headr:    4096,
		PEAlign:  512,
		Debug:    make(map[byte]int),
	}
	switch thechar {
	case '6': // amd64
		c.PtrSize = 8
		c.FuncAlign = 16
		c.InitText = 0x400000 + c.Headr
	case '8': // x86 (386)
		c.PtrSize = 4
		c.FuncAlign = 16
		c.InitText = 0x08048000 + c.Headr
	case '5': // arm
		c.PtrSize = 4
		c.FuncAlign = 4
		c.InitText = 0x10000 + c.Headr
	default:
		return nil, fmt.Errorf("unsupported architecture char %q", thechar)
	}
	return c, nil
}

// LoadConfig builds a Config by layering, lowest priority first: an
// environment-derived architecture default, then whatever values are set
// in v (typically command-line flags bound into v by cmd/corelink's cobra
// command). LoadConfig does not read a config file itself; it only sees
// what the caller has already put into v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	thechar := v.GetString("thechar")
	if thechar == "" {
		thechar = env.Str("LINKCORE_THECHAR", "6")
	}
	if len(thechar) != 1 {
		return nil, fmt.Errorf("thechar must be a single character, got %q", thechar)
	}

	c, err := defaultConfigForArch(thechar[0])
	if err != nil {
		return nil, err
	}

	if v.IsSet("shared") {
		c.FlagShared = v.GetBool("shared")
	}
	if v.IsSet("isobj") {
		c.IsObj = v.GetBool("isobj")
	}
	if v.IsSet("inittext") {
		c.InitText = v.GetInt64("inittext")
	}
	if v.IsSet("initrnd") {
		c.InitRnd = int32(v.GetInt("initrnd"))
	}
	if v.IsSet("headtype") {
		switch v.GetString("headtype") {
		case "elf":
			c.HeadType = HeadELF
		case "windows":
			c.HeadType = HeadWindows
		case "darwin":
			c.HeadType = HeadDarwin
		case "plan9":
			c.HeadType = HeadPlan9
		default:
			return nil, fmt.Errorf("unknown headtype %q", v.GetString("headtype"))
		}
	}
	return c, nil
}
