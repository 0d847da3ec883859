// Package challenges holds the static random-challenge catalogue.
package challenges

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Section struct {
	Key     string
	Title   string
	Entries []string
}

var catalog = []Section{
	{
		Key:   "mind",
		Title: "Mind & Creativity",
		Entries: []string{
			"For one hour, do the opposite of what you would normally do.",
			"For 15 minutes, narrate everything you do as if you were a filmmaker.",
			"Pick an object and build a story about it one word at a time.",
			"Write a haiku about your lunch.",
			"Recite the alphabet backwards as fast as you can.",
		},
	},
	{
		Key:   "physical",
		Title: "Physical & Movement",
		Entries: []string{
			"Move like an animal around your home for five minutes.",
			"Stand on one leg for as long as you can.",
			"Walk backwards 50 steps somewhere safe.",
			"Find a chair yoga pose and hold it for one minute.",
			"Stay perfectly still like a statue for 60 seconds.",
		},
	},
	{
		Key:   "social",
		Title: "Social & Interpersonal",
		Entries: []string{
			"Give a stranger a genuine compliment.",
			`Learn to say "hello" and "thank you" in a new language.`,
			"Offer someone help unexpectedly.",
			"Make eye contact with five people and try to get a smile back.",
			"Share a fun fact with a friend or family member.",
		},
	},
	{
		Key:   "humorous",
		Title: "Random & Humorous",
		Entries: []string{
			"Wear a piece of clothing inside out for an hour.",
			"Try to speak only in rhymes for five minutes.",
			"Make a minor decision by flipping a coin.",
			"Find a cloud that looks like an animal.",
			"Rearrange five random objects around you.",
		},
	},
}

// DefaultSection is shown when no section is named.
const DefaultSection = "mind"

// Sections returns the catalogue in display order.
func Sections() []Section {
	out := make([]Section, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a section by key, case-insensitively.
func Lookup(key string) (Section, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = DefaultSection
	}
	for _, s := range catalog {
		if s.Key == key {
			return s, nil
		}
	}
	return Section{}, fmt.Errorf("unknown section %q (want one of %s)", key, strings.Join(Keys(), ", "))
}

func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for _, s := range catalog {
		keys = append(keys, s.Key)
	}
	return keys
}

// Pick returns one random entry from the section, or from the whole
// catalogue when key is "any".
func Pick(key string, r *rand.Rand) (Section, string, error) {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	var s Section
	if strings.EqualFold(key, "any") {
		s = catalog[r.IntN(len(catalog))]
	} else {
		var err error
		if s, err = Lookup(key); err != nil {
			return Section{}, "", err
		}
	}
	return s, s.Entries[r.IntN(len(s.Entries))], nil
}
