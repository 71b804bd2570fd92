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

package settings

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Color is an RGB triplet as stored by the firmware.
type Color [3]uint8

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseColor accepts the JSON forms a triplet may arrive in.
func ParseColor(val any) (Color, error) {
	var comps []float64
	switch x := val.(type) {
	case []any:
		for _, c := range x {
			f, ok := c.(float64)
			if !ok {
				return Color{}, fmt.Errorf("colour component %v is not a number", c)
			}
			comps = append(comps, f)
		}
	case []float64:
		comps = x
	case []int:
		for _, c := range x {
			comps = append(comps, float64(c))
		}
	case Color:
		return x, nil
	default:
		return Color{}, fmt.Errorf("colour must be a list of 3 integers, got %T", val)
	}

	if err := validate.Var(comps, "len=3,dive,gte=0,lte=255"); err != nil {
		return Color{}, errors.New("colour must be 3 integers between 0 and 255")
	}

	var c Color
	for i, f := range comps {
		if f != math.Trunc(f) {
			return Color{}, fmt.Errorf("colour component %v is not an integer", f)
		}
		c[i] = uint8(f)
	}
	return c, nil
}

// Color returns a colour setting.
func (v Values) Color(key string) (Color, bool) {
	val, ok := v[key]
	if !ok {
		return Color{}, false
	}
	c, err := ParseColor(val)
	if err != nil {
		return Color{}, false
	}
	return c, true
}
