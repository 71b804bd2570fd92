/*
GroovTube Core
Copyright (c) 2026 The GroovTube Core Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of GroovTube Core.

GroovTube Core is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GroovTube Core is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GroovTube Core.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package protocol encodes commands for and decodes lines from the GroovTube
// firmware. The protocol is newline-delimited UTF-8 text; the transport layer
// handles framing.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	CmdGetSettings     = "GET:settings"
	CmdGetMeasurements = "GET:measurements"
	CmdExport          = "EXPORT"

	PrefixSetSettings = "SET:settings::"
	PrefixSetMeasure  = "SET:measure:"

	PrefixBreathData   = "BREATH_DATA:"
	PrefixSettings     = "SETTINGS::"
	PrefixOK           = "OK"
	PrefixError        = "ERROR"
	PrefixPEPProgress  = "PEP VOORTGANG:"
	PrefixPEPReward    = "PEP_REWARD:"
	PrefixExport       = "EXPORT::"
	PrefixMeasurements = "MEASUREMENTS::"
)

// ErrEmptyUpdate is returned when encoding a settings update with no keys.
var ErrEmptyUpdate = errors.New("settings update has no keys")

// DecodeError describes an inbound line that matched a known prefix but
// carried a malformed payload. Callers drop the line.
type DecodeError struct {
	Err  error
	Line string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed line %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	floatPrefixRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
	pepProgressRe = regexp.MustCompile(`^PEP VOORTGANG: (\d+)/(\d+) herhalingen gehaald`)
)

// EncodeGetSettings requests a full settings snapshot.
func EncodeGetSettings() string {
	return CmdGetSettings
}

// EncodeSetSettings encodes a partial settings update. Keys are emitted in
// sorted order.
func EncodeSetSettings(values map[string]any) (string, error) {
	if len(values) == 0 {
		return "", ErrEmptyUpdate
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings update: %w", err)
	}
	return PrefixSetSettings + string(data), nil
}

// EncodeSetMeasure switches the firmware's own measurement tracking.
func EncodeSetMeasure(on bool) string {
	return PrefixSetMeasure + strconv.FormatBool(on)
}

// EncodeGetMeasurements requests the firmware's measurement summary.
func EncodeGetMeasurements() string {
	return CmdGetMeasurements
}

// EncodeExport asks the firmware to dump its settings.
func EncodeExport() string {
	return CmdExport
}

// Decode turns one inbound line into an event. Unknown lines decode to a nil
// event and nil error. Malformed payloads return a *DecodeError.
func Decode(line string, now time.Time) (Event, error) {
	switch {
	case strings.HasPrefix(line, PrefixBreathData):
		return BreathSample{
			Value:     parseFloatPrefix(firstSegment(line[len(PrefixBreathData):])),
			Timestamp: now,
		}, nil
	case strings.HasPrefix(line, PrefixSettings):
		values, err := decodeObject(line[len(PrefixSettings):])
		if err != nil {
			return nil, &DecodeError{Line: line, Err: err}
		}
		return Snapshot{Settings: values}, nil
	case strings.HasPrefix(line, PrefixOK):
		return Ack{}, nil
	case strings.HasPrefix(line, PrefixError):
		msg := strings.TrimPrefix(line[len(PrefixError):], ":")
		return DeviceError{Message: strings.TrimSpace(msg)}, nil
	case strings.HasPrefix(line, PrefixPEPProgress):
		return decodePEPProgress(line)
	case strings.HasPrefix(line, PrefixPEPReward):
		rest := line[len(PrefixPEPReward):]
		action, arg, _ := strings.Cut(rest, "::")
		if action == "" {
			return nil, &DecodeError{Line: line, Err: errors.New("missing reward action")}
		}
		return PEPReward{Action: action, Argument: arg}, nil
	case strings.HasPrefix(line, PrefixExport):
		values, err := decodeObject(line[len(PrefixExport):])
		if err != nil {
			return nil, &DecodeError{Line: line, Err: err}
		}
		return Export{Settings: values}, nil
	case strings.HasPrefix(line, PrefixMeasurements):
		var m DeviceMeasurements
		if err := json.Unmarshal([]byte(line[len(PrefixMeasurements):]), &m); err != nil {
			return nil, &DecodeError{Line: line, Err: err}
		}
		return m, nil
	default:
		return nil, nil //nolint:nilnil // unknown lines are ignored, not an error
	}
}

func decodePEPProgress(line string) (Event, error) {
	m := pepProgressRe.FindStringSubmatch(line)
	if m == nil {
		return nil, &DecodeError{Line: line, Err: errors.New("unrecognised progress format")}
	}
	cur, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, &DecodeError{Line: line, Err: err}
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, &DecodeError{Line: line, Err: err}
	}
	return PEPProgress{Current: cur, Total: total}, nil
}

func decodeObject(payload string) (map[string]any, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return nil, fmt.Errorf("invalid settings json: %w", err)
	}
	if values == nil {
		return nil, errors.New("settings payload is not an object")
	}
	return values, nil
}

// firstSegment returns s up to the next ':' separator.
func firstSegment(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// parseFloatPrefix parses the longest numeric prefix of s and returns NaN
// when there is none, so "0.5abc" reads as 0.5 and "" reads as NaN.
func parseFloatPrefix(s string) float64 {
	m := floatPrefixRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return v
}
