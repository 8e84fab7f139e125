// Package coach picks the encouragement messages shown alongside the tracker.
package coach

import (
	"fmt"
	"math/rand"
	"sync"
)

// Kind selects a message set
type Kind string

const (
	KindWelcome    Kind = "welcome"
	KindAddItem    Kind = "addItem"
	KindUrgent     Kind = "urgent"
	KindWaste      Kind = "waste"
	KindGoodJob    Kind = "goodJob"
	KindEmpty      Kind = "empty"
	KindScanning   Kind = "scanning"
	KindConsumed   Kind = "consumed"
	KindBatchAdded Kind = "batchAdded"
)

// GoodJobCO2Threshold is the wasted CO2 (kg) above which Advise congratulates
const GoodJobCO2Threshold = 5.0

var messages = map[Kind][]string{
	KindWelcome: {
		"Hi! I'm Penny the Parsnip! 🥕 Let's save some food together!",
		"Hey there! Penny here, ready to help you fight food waste! 💪",
		"Welcome back! Let's keep those groceries fresh! 🌱",
	},
	KindAddItem: {
		"Great! Another item saved from waste! 🎉",
		"Awesome! I'll help you remember to use that! ✨",
		"Nice one! Let's make sure it doesn't go to waste! 🌟",
	},
	KindWaste: {
		"Oh no! Let's learn from this and do better next time! 💚",
		"Every mistake is a learning opportunity! We've got this! 🌍",
		"Don't worry, we'll reduce waste together! Keep trying! 💪",
	},
	KindGoodJob: {
		"You're doing amazing! Keep up the great work! 🌟",
		"Look at that impact! You're a food-saving hero! 🦸",
		"Wow! Your planet thanks you! 🌎💚",
	},
	KindEmpty: {
		"Ready to start tracking? Add your first item! 📝",
		"Let's build a waste-free kitchen together! 🏡",
		"Time to start your food-saving journey! 🚀",
	},
	KindScanning: {
		"Analyzing your receipt... I'm so excited! 📸",
		"Reading all those items... This is so cool! 🤓",
		"Almost there... Getting those expiration dates! ⚡",
	},
	KindConsumed: {
		"YES! That's what I'm talking about! Way to go! 🎉",
		"Amazing! Zero waste is the best waste! 💚",
		"You're crushing it! Keep eating that food! 🌟",
		"Perfect! That's exactly what we want to see! 🙌",
	},
	KindBatchAdded: {
		"Wow! All those items added in seconds! You're a pro! 🚀",
	},
}

// Coach selects messages with its own random source
type Coach struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a coach. Pass a fixed-seed source for reproducible output.
func New(src rand.Source) *Coach {
	return &Coach{rng: rand.New(src)}
}

// Message returns a message of the given kind. Unknown kinds fall back to
// the welcome set.
func (c *Coach) Message(kind Kind) string {
	if kind == KindUrgent {
		return c.UrgentMessage(1)
	}
	set, ok := messages[kind]
	if !ok {
		set = messages[KindWelcome]
	}
	return set[c.intn(len(set))]
}

// UrgentMessage returns an urgent reminder mentioning count items
func (c *Coach) UrgentMessage(count int) string {
	plural, verb := "s", "s are"
	if count <= 1 {
		plural, verb = "", " is"
	}
	set := []string{
		fmt.Sprintf("Psst! You have %d item%s that need attention soon! 😰", count, plural),
		fmt.Sprintf("Quick! %d item%s about to expire! 🚨", count, verb),
		fmt.Sprintf("Don't forget about those %d expiring item%s! ⏰", count, plural),
	}
	return set[c.intn(len(set))]
}

// Advise picks a message for the current state: urgent items first, then an
// empty inventory, then praise once wasted CO2 passes GoodJobCO2Threshold.
// Otherwise it greets.
func (c *Coach) Advise(urgentCount, itemCount, wasteCount int, wastedCO2 float64) (Kind, string) {
	switch {
	case urgentCount > 0:
		return KindUrgent, c.UrgentMessage(urgentCount)
	case itemCount == 0:
		return KindEmpty, c.Message(KindEmpty)
	case wasteCount > 0 && wastedCO2 > GoodJobCO2Threshold:
		return KindGoodJob, c.Message(KindGoodJob)
	default:
		return KindWelcome, c.Message(KindWelcome)
	}
}

func (c *Coach) intn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Intn(n)
}
