// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package main

import (
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/stan3984/peas-rf-cp/pkg/netpeer"
)

const (
	botMinWait = 1 * time.Second
	botMaxWait = 10 * time.Second
	botSleep   = 500 * time.Millisecond
)

// runBot drains h and sends an incrementing counter at random intervals,
// replacing the interactive UI for scripted load testing.
func runBot(h *netpeer.NetHandle, log *zap.Logger) {
	counter := 0
	nextAction := time.Now()

	for {
		for {
			_, ok := h.Read()
			if !ok {
				break
			}
		}

		now := time.Now()
		if !now.Before(nextAction) {
			counter++
			msg := strconv.Itoa(counter)
			log.Debug("bot sending message", zap.String("msg", msg))
			h.SendMessage(msg)

			delay := botMinWait + time.Duration(rand.Int63n(int64(botMaxWait-botMinWait)))
			nextAction = now.Add(delay)
		}

		time.Sleep(botSleep)
	}
}
