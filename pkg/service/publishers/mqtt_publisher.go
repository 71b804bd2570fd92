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

// Package publishers forwards session notifications to external systems.
package publishers

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GroovTube/groovtube-core/pkg/api/models"
	"github.com/GroovTube/groovtube-core/pkg/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout  = 10 * time.Second
	publishTimeout  = 5 * time.Second
	disconnectQuiet = 250
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// DefaultFilter keeps the continuous sample stream off the broker unless a
// publisher asks for it explicitly.
var DefaultFilter = []string{
	models.NotificationBreathAction,
	models.NotificationStatusChanged,
	models.NotificationConnectionState,
	models.NotificationMeasurementReport,
}

type clientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// MQTTPublisher publishes notifications to <topic>/<method>, where the
// method's dots become topic levels ("breath.action" → "groovtube/breath/action").
type MQTTPublisher struct {
	client    mqtt.Client
	newClient clientFactory
	stopCh    chan struct{}
	broker    string
	topic     string
	filter    []string
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	if filter == nil {
		filter = DefaultFilter
	}
	return &MQTTPublisher{
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		filter:    filter,
		stopCh:    make(chan struct{}),
		newClient: mqtt.NewClient,
	}
}

// FromConfig builds one publisher per enabled [[publishers.mqtt]] entry.
func FromConfig(cfg *config.Instance) []*MQTTPublisher {
	pubs := make([]*MQTTPublisher, 0)
	for _, p := range cfg.MQTTPublishers() {
		if !p.IsEnabled() {
			continue
		}
		pubs = append(pubs, NewMQTTPublisher(p.Broker, p.Topic, p.Filter))
	}
	return pubs
}

// Methods is the set of notification methods this publisher wants; an
// empty slice means everything.
func (p *MQTTPublisher) Methods() []string {
	return slices.Clone(p.filter)
}

// Start connects to the broker and forwards notifications until Stop is
// called or the channel closes.
func (p *MQTTPublisher) Start(notifications <-chan models.Notification) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + p.broker)
	opts.SetClientID("groovtube-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Str("broker", p.broker).Msg("mqtt publisher: connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", p.broker).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", p.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.Info().Str("broker", p.broker).Str("topic", p.topic).Msg("mqtt publisher: started")

	p.wg.Add(1)
	go p.publishNotifications(notifications)
	return nil
}

// Stop ends the publishing loop and disconnects. Safe to call more than once.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		if p.client != nil && p.client.IsConnected() {
			log.Debug().Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(disconnectQuiet)
		}
	})
}

// TopicFor maps a notification method to its MQTT topic.
func (p *MQTTPublisher) TopicFor(method string) string {
	return p.topic + "/" + strings.ReplaceAll(method, ".", "/")
}

func (p *MQTTPublisher) publishNotifications(notifications <-chan models.Notification) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			if !p.matchesFilter(notif.Method) {
				continue
			}
			if err := p.publish(notif); err != nil {
				log.Error().Err(err).Str("method", notif.Method).Msg("mqtt publisher: publish failed")
			}
		}
	}
}

func (p *MQTTPublisher) publish(notif models.Notification) error {
	payload := []byte(notif.Params)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	token := p.client.Publish(p.TopicFor(notif.Method), 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", notif.Method, err)
	}
	return nil
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
