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

package audio

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/GroovTube/groovtube-core/pkg/protocol"
	"github.com/rs/zerolog/log"
)

// PlayMP3 is the only reward action current firmware sends.
const PlayMP3 = "PLAY_MP3"

var ErrOutsideMediaDir = errors.New("reward file is outside the media directory")

// Rewards plays the file named by a PEP_REWARD line from the media dir.
type Rewards struct {
	player Player
	dir    string
}

func NewRewards(player Player, mediaDir string) *Rewards {
	return &Rewards{player: player, dir: mediaDir}
}

// Resolve maps the device's relative file name into the media dir. Absolute
// names and names that climb out of the dir are refused.
func (r *Rewards) Resolve(name string) (string, error) {
	name = filepath.FromSlash(strings.TrimSpace(name))
	if name == "" || !filepath.IsLocal(name) {
		return "", ErrOutsideMediaDir
	}
	return filepath.Join(r.dir, name), nil
}

// Handle is a session device event callback. Anything other than a
// PLAY_MP3 reward is ignored.
func (r *Rewards) Handle(ev protocol.Event) {
	reward, ok := ev.(protocol.PEPReward)
	if !ok {
		return
	}
	if reward.Action != PlayMP3 {
		log.Debug().Str("action", reward.Action).Msg("ignoring unknown reward action")
		return
	}

	path, err := r.Resolve(reward.Argument)
	if err != nil {
		log.Warn().Err(err).Str("file", reward.Argument).Msg("refusing reward file")
		return
	}
	if err := r.player.PlayFile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to play reward")
		return
	}
	log.Info().Str("path", path).Msg("playing reward")
}

func (r *Rewards) Stop() {
	r.player.Stop()
}
