// Package resource identifies the computation units the pool manages.
package resource

import (
	"errors"
	"fmt"
)

// Kind names a category of computation unit.
type Kind string

const (
	// KindTranscriber converts audio to text.
	KindTranscriber Kind = "transcriber"
	// KindSummarizer condenses transcripts.
	KindSummarizer Kind = "summarizer"
	// KindGenerator produces comprehension questions.
	KindGenerator Kind = "generator"
	// KindEmbedder turns text into dense vectors.
	KindEmbedder Kind = "embedder"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTranscriber, KindSummarizer, KindGenerator, KindEmbedder:
		return true
	}
	return false
}

// Tier selects the quality/cost trade-off of a unit.
type Tier string

const (
	TierTiny   Tier = "tiny"
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	switch t {
	case TierTiny, TierSmall, TierMedium, TierLarge:
		return true
	}
	return false
}

// Key identifies one poolable unit configuration. Comparable; used as a map key.
type Key struct {
	kind Kind
	tier Tier
}

// NewKey creates a validated resource key.
func NewKey(kind Kind, tier Tier) (Key, error) {
	if !kind.IsValid() {
		return Key{}, fmt.Errorf("unknown resource kind %q", kind)
	}
	if !tier.IsValid() {
		return Key{}, fmt.Errorf("unknown resource tier %q", tier)
	}
	return Key{kind: kind, tier: tier}, nil
}

// MustKey creates a key or panics. For compile-time constant combinations.
func MustKey(kind Kind, tier Tier) Key {
	k, err := NewKey(kind, tier)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseTier converts a configuration string into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", errors.New("unknown resource tier " + s)
	}
	return t, nil
}

// Kind returns the unit category.
func (k Key) Kind() Kind { return k.kind }

// Tier returns the unit quality tier.
func (k Key) Tier() Tier { return k.tier }

// String formats the key as "kind:tier".
func (k Key) String() string { return string(k.kind) + ":" + string(k.tier) }
