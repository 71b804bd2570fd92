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

package helpers

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

var ErrNoGroovTube = errors.New("no GroovTube adapter found")

type usbVendor struct {
	Vid  string
	Name string
}

// The adapter firmware runs on CircuitPython boards, which enumerate with
// one of these vendor IDs.
var groovTubeVendors = []usbVendor{
	{Vid: "239a", Name: "Adafruit"},
	{Vid: "2e8a", Name: "Raspberry Pi"},
}

type SerialPort struct {
	Name         string
	VID          string
	PID          string
	Product      string
	SerialNumber string
	IsUSB        bool
}

// GroovTube reports whether the port looks like a GroovTube adapter.
func (p SerialPort) GroovTube() bool {
	if strings.Contains(strings.ToLower(p.Product), "groovtube") {
		return true
	}
	if !p.IsUSB {
		return false
	}
	vid := strings.ToLower(p.VID)
	return slices.ContainsFunc(groovTubeVendors, func(v usbVendor) bool {
		return v.Vid == vid
	})
}

// PortLister returns the detailed port list, normally
// enumerator.GetDetailedPortsList.
type PortLister func() ([]*enumerator.PortDetails, error)

// ListSerialPorts lists ports with likely GroovTube adapters first.
func ListSerialPorts(list PortLister) ([]SerialPort, error) {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	details, err := list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	ports := make([]SerialPort, 0, len(details))
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		ports = append(ports, SerialPort{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          strings.ToLower(d.VID),
			PID:          strings.ToLower(d.PID),
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
		})
	}

	slices.SortStableFunc(ports, func(a, b SerialPort) int {
		switch {
		case a.GroovTube() == b.GroovTube():
			return strings.Compare(a.Name, b.Name)
		case a.GroovTube():
			return -1
		default:
			return 1
		}
	})
	return ports, nil
}

// DetectGroovTube picks the first likely adapter.
func DetectGroovTube(list PortLister) (string, error) {
	ports, err := ListSerialPorts(list)
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if p.GroovTube() {
			log.Info().Str("port", p.Name).Str("vid", p.VID).Str("pid", p.PID).Msg("detected GroovTube adapter")
			return p.Name, nil
		}
	}
	return "", ErrNoGroovTube
}
