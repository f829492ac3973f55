package twinax

/*------------------------------------------------------------------
 *
 * Purpose:   	Runtime configuration of the converter core.
 *
 * Description: The command line configures each station with a compact
 *		positional spec:
 *
 *			addr[:dict[:poll[:codepage]]]
 *
 *		e.g.  0  2:typewriter  3:enh:slow:cp500
 *
 *		Oddball keyboards can bring their own scancode
 *		dictionary and ASCII->EBCDIC overrides as YAML files.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type StationConfig struct {
	Addr     byte
	Dict     string
	Rate     PollRate
	Codepage string
	Override map[byte]byte
}

type Config struct {
	Device   string
	Stations []StationConfig

	Login         bool
	ClickerSilent bool
	Daemon        bool

	LogFrames    bool
	LogScancodes bool
	LogPTY       bool

	AdminTCP  bool
	AdminUnix bool
}

// ParseStationSpec parses one positional station argument.
func ParseStationSpec(spec string) (StationConfig, error) {
	var sc StationConfig
	var parts = strings.Split(spec, ":")

	var addr, err = strconv.Atoi(parts[0])
	if err != nil || addr < 0 || addr >= MAX_STATIONS {
		return sc, fmt.Errorf("station address must be 0..%d: %q", MAX_STATIONS-1, spec)
	}
	sc.Addr = byte(addr)

	if len(parts) > 1 {
		if _, err := LookupDict(parts[1]); err != nil {
			return sc, fmt.Errorf("station %d: %w", addr, err)
		}
		sc.Dict = parts[1]
	}
	if len(parts) > 2 {
		sc.Rate, err = ParsePollRate(parts[2])
		if err != nil {
			return sc, fmt.Errorf("station %d: %w", addr, err)
		}
	}
	if len(parts) > 3 {
		if _, err := LookupCodepage(parts[3]); err != nil {
			return sc, fmt.Errorf("station %d: %w", addr, err)
		}
		sc.Codepage = parts[3]
	}
	if len(parts) > 4 {
		return sc, fmt.Errorf("too many fields in station spec %q", spec)
	}
	return sc, nil
}

// Validate rejects duplicate addresses and empty configurations.
func (c *Config) Validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("no stations configured")
	}
	var seen [MAX_STATIONS]bool
	for _, sc := range c.Stations {
		if seen[sc.Addr] {
			return fmt.Errorf("station %d configured twice", sc.Addr)
		}
		seen[sc.Addr] = true
	}
	return nil
}

/* YAML shape of a custom scancode dictionary. */

type dictFile struct {
	Name         string           `yaml:"name"`
	ShiftPress   []int            `yaml:"shift_press"`
	ShiftRelease []int            `yaml:"shift_release"`
	CtrlPress    []int            `yaml:"ctrl_press"`
	CtrlRelease  []int            `yaml:"ctrl_release"`
	AltPress     []int            `yaml:"alt_press"`
	AltRelease   []int            `yaml:"alt_release"`
	CapsLock     int              `yaml:"caps_lock"`
	Keys         map[int][]string `yaml:"keys"`
}

/*-------------------------------------------------------------------
 *
 * Name:        LoadDictFile
 *
 * Purpose:     Read a custom scancode dictionary and register it.
 *
 * Description:	Each key entry is the usual four-or-five element tuple
 *		(base, shifted, alted, controlled [, escape tail]); an
 *		element is one literal character, an empty string for a
 *		suppressed plane, or "ESC".
 *
 *--------------------------------------------------------------------*/

func LoadDictFile(path string) (*ScancodeDict, error) {
	var raw, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary file: %w", err)
	}

	var df dictFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("dictionary file %s: %w", path, err)
	}
	if df.Name == "" {
		return nil, fmt.Errorf("dictionary file %s: missing name", path)
	}

	var d = &ScancodeDict{
		Name:         df.Name,
		ShiftPress:   toBytes(df.ShiftPress),
		ShiftRelease: toBytes(df.ShiftRelease),
		CtrlPress:    toBytes(df.CtrlPress),
		CtrlRelease:  toBytes(df.CtrlRelease),
		AltPress:     toBytes(df.AltPress),
		AltRelease:   toBytes(df.AltRelease),
		CapsLock:     byte(df.CapsLock),
	}

	for code, tuple := range df.Keys {
		if code < 0 || code > 255 {
			return nil, fmt.Errorf("dictionary %s: scancode %d out of range", df.Name, code)
		}
		if len(tuple) < 4 || len(tuple) > 5 {
			return nil, fmt.Errorf("dictionary %s: scancode %d needs 4 or 5 elements", df.Name, code)
		}
		var slot ScancodeSlot
		slot.Base = tupleByte(tuple[0])
		slot.Shifted = tupleByte(tuple[1])
		slot.Alted = tupleByte(tuple[2])
		slot.Controlled = tupleByte(tuple[3])
		if len(tuple) == 5 {
			slot.EscapeTail = tupleByte(tuple[4])
		}
		d.Slots[code] = slot
	}

	RegisterDict(d)
	return d, nil
}

func toBytes(v []int) []byte {
	var out = make([]byte, 0, len(v))
	for _, i := range v {
		out = append(out, byte(i))
	}
	return out
}

func tupleByte(s string) byte {
	switch {
	case s == "":
		return 0
	case s == "ESC":
		return ESC
	default:
		return s[0]
	}
}

/* YAML shape of a codepage override file: ASCII character to EBCDIC
   byte.  Each key is exactly one character. */

type overrideFile struct {
	Overrides map[string]int `yaml:"overrides"`
}

func LoadOverrideFile(path string) (map[byte]byte, error) {
	var raw, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("override file: %w", err)
	}

	var of overrideFile
	if err := yaml.Unmarshal(raw, &of); err != nil {
		return nil, fmt.Errorf("override file %s: %w", path, err)
	}

	var out = make(map[byte]byte, len(of.Overrides))
	for k, v := range of.Overrides {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("override file %s: EBCDIC value %d out of range", path, v)
		}
		if len(k) != 1 {
			return nil, fmt.Errorf("override file %s: key %q must be one character", path, k)
		}
		out[k[0]] = byte(v)
	}
	return out, nil
}
