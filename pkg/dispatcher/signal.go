package dispatcher

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"arhat.dev/linkhook/pkg/constant"
)

var (
	ErrUnexpectedInterface = errors.New("unexpected signal interface")
	ErrUnexpectedPath      = errors.New("unexpected object path")
)

// Axis of a link state
type Axis string

const (
	AxisAdministrative Axis = "administrative"
	AxisOperational    Axis = "operational"
)

// LinkSignal is a PropertiesChanged notification of a networkd link
type LinkSignal struct {
	// Interface the properties belong to
	Interface string
	// Path of the link object
	Path string
	// Changed string properties
	Changed map[string]string
}

// Change is a decoded LinkSignal, either state may be absent
type Change struct {
	Index int

	Administrative    string
	HasAdministrative bool

	Operational    string
	HasOperational bool
}

func (c Change) states() []axisState {
	var ret []axisState
	if c.HasAdministrative {
		ret = append(ret, axisState{axis: AxisAdministrative, state: c.Administrative})
	}

	if c.HasOperational {
		ret = append(ret, axisState{axis: AxisOperational, state: c.Operational})
	}

	return ret
}

type axisState struct {
	axis  Axis
	state string
}

// DecodeSignal validates sig and extracts the link index and new states
func DecodeSignal(sig LinkSignal) (Change, error) {
	if sig.Interface != constant.NetworkdLinkInterface {
		return Change{}, fmt.Errorf("%w: %q", ErrUnexpectedInterface, sig.Interface)
	}

	label := strings.TrimPrefix(sig.Path, constant.NetworkdLinkPathPrefix+"/")
	if label == sig.Path || label == "" || strings.Contains(label, "/") {
		return Change{}, fmt.Errorf("%w: %q", ErrUnexpectedPath, sig.Path)
	}

	decoded, err := UnescapeBusLabel(label)
	if err != nil {
		return Change{}, fmt.Errorf("%w: %q: %v", ErrUnexpectedPath, sig.Path, err)
	}

	index, err := strconv.Atoi(decoded)
	if err != nil || index <= 0 {
		return Change{}, fmt.Errorf("%w: %q: invalid link index %q", ErrUnexpectedPath, sig.Path, decoded)
	}

	c := Change{Index: index}
	c.Administrative, c.HasAdministrative = sig.Changed[constant.PropertyAdministrativeState]
	c.Operational, c.HasOperational = sig.Changed[constant.PropertyOperationalState]

	return c, nil
}

// UnescapeBusLabel reverses sd-bus object path label escaping, where
// every byte not allowed in a label is written as _xx in hex
func UnescapeBusLabel(label string) (string, error) {
	if !strings.Contains(label, "_") {
		return label, nil
	}

	var sb strings.Builder
	for i := 0; i < len(label); i++ {
		if label[i] != '_' {
			sb.WriteByte(label[i])
			continue
		}

		if i+2 >= len(label) {
			return "", fmt.Errorf("truncated escape sequence at %d", i)
		}

		b, err := strconv.ParseUint(label[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid escape sequence %q", label[i:i+3])
		}

		sb.WriteByte(byte(b))
		i += 2
	}

	return sb.String(), nil
}
