// Package music generates synthetic tone sequences with a listener
// preference score derived from interval consonance. The sequences feed the
// forward engine in package nn.
package music

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SequenceLength is the number of notes in a generated sequence.
const SequenceLength = 10

// Frequency band every note is folded into.
const (
	MinFrequency = 200.0
	MaxFrequency = 1000.0
)

// BaseFrequencies are the twelve pitches of octave 4, C to B, in Hz.
var BaseFrequencies = []float64{
	261.63, 277.18, 293.66, 311.13, 329.63, 349.23,
	369.99, 392.00, 415.30, 440.00, 466.16, 493.88,
}

// ConsonantRatios: unison, octave, fifth, fourth, major third, minor third, major sixth.
var ConsonantRatios = []float64{1, 2, 3.0 / 2, 4.0 / 3, 5.0 / 4, 6.0 / 5, 5.0 / 3}

// DissonantRatios: minor second, major seventh, tritone.
var DissonantRatios = []float64{16.0 / 15, 15.0 / 8, 45.0 / 32}

// ErrUnknownStyle is returned by ParseStyle.
var ErrUnknownStyle = errors.New("unknown style")

// Style selects how often a generated step is consonant.
type Style int

const (
	Mixed Style = iota
	Classical
	Jazz
)

func (s Style) String() string {
	switch s {
	case Classical:
		return "classical"
	case Jazz:
		return "jazz"
	default:
		return "mixed"
	}
}

// ParseStyle accepts classical, jazz or mixed. The empty string is mixed.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mixed":
		return Mixed, nil
	case "classical":
		return Classical, nil
	case "jazz":
		return Jazz, nil
	}
	return Mixed, errors.Wrapf(ErrUnknownStyle, "%q", s)
}

// Sequence is one generated melody and its preference score in [0, 1].
type Sequence struct {
	Style       Style     `json:"style"`
	Frequencies []float64 `json:"frequencies"`
	Preference  float64   `json:"preference"`
}

// ConsonanceScore averages 1/(1+10·d) over every note pair, where d is the
// distance of the pair's frequency ratio to the nearest consonant ratio.
// Fewer than two notes score 0.
func ConsonanceScore(freqs []float64) float64 {
	var score float64
	var pairs int
	for i := 0; i < len(freqs); i++ {
		for j := i + 1; j < len(freqs); j++ {
			ratio := math.Max(freqs[i], freqs[j]) / math.Min(freqs[i], freqs[j])
			minDiff := math.Inf(1)
			for _, c := range ConsonantRatios {
				minDiff = math.Min(minDiff, math.Abs(ratio-c))
			}
			score += 1 / (1 + 10*minDiff)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return score / float64(pairs)
}

// Fold moves f by octaves until it lies in [MinFrequency, MaxFrequency].
func Fold(f float64) float64 {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	for f > MaxFrequency {
		f /= 2
	}
	for f < MinFrequency {
		f *= 2
	}
	return f
}

// Normalize maps frequencies in [MinFrequency, MaxFrequency] linearly onto
// [-1, 1]. The input is not modified.
func Normalize(freqs []float64) []float64 {
	out := append([]float64(nil), freqs...)
	mid := (MaxFrequency + MinFrequency) / 2
	floats.AddConst(-mid, out)
	floats.Scale(2/(MaxFrequency-MinFrequency), out)
	return out
}

// Generator draws sequences from its own seeded source. It is not safe for
// concurrent use.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// NewGenerator creates a Generator. A zero seed is replaced by the current time.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() int64 { return g.seed }

// Classical favours consonant steps (70%) and scores 0.8·c + 0.2.
func (g *Generator) Classical() Sequence {
	freqs := g.walk(0.7)
	return Sequence{
		Style:       Classical,
		Frequencies: freqs,
		Preference:  0.8*ConsonanceScore(freqs) + 0.2,
	}
}

// Jazz tolerates dissonance (40% consonant steps) and scores 0.5·c + 0.5.
func (g *Generator) Jazz() Sequence {
	freqs := g.walk(0.4)
	return Sequence{
		Style:       Jazz,
		Frequencies: freqs,
		Preference:  0.5*ConsonanceScore(freqs) + 0.5,
	}
}

// Next draws one sequence of the given style; Mixed picks either with equal odds.
func (g *Generator) Next(style Style) Sequence {
	switch style {
	case Classical:
		return g.Classical()
	case Jazz:
		return g.Jazz()
	}
	if g.rng.Float64() < 0.5 {
		return g.Classical()
	}
	return g.Jazz()
}

// Dataset draws size sequences.
func (g *Generator) Dataset(size int, style Style) []Sequence {
	if size <= 0 {
		return nil
	}
	out := make([]Sequence, size)
	for i := range out {
		out[i] = g.Next(style)
	}
	return out
}

func (g *Generator) walk(consonantOdds float64) []float64 {
	freqs := make([]float64, 0, SequenceLength)
	freqs = append(freqs, BaseFrequencies[g.rng.Intn(len(BaseFrequencies))])
	for len(freqs) < SequenceLength {
		ratios := DissonantRatios
		if g.rng.Float64() < consonantOdds {
			ratios = ConsonantRatios
		}
		ratio := ratios[g.rng.Intn(len(ratios))]
		freqs = append(freqs, Fold(freqs[len(freqs)-1]*ratio))
	}
	return freqs
}

// Summary describes the preference scores of a dataset.
type Summary struct {
	Count          int     `json:"count"`
	MeanPreference float64 `json:"mean_preference"`
	StdPreference  float64 `json:"std_preference"`
	MinPreference  float64 `json:"min_preference"`
	MaxPreference  float64 `json:"max_preference"`
}

// Summarize computes preference statistics. An empty dataset gives a zero Summary.
func Summarize(data []Sequence) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	prefs := Preferences(data)
	s := Summary{
		Count:          len(prefs),
		MeanPreference: stat.Mean(prefs, nil),
		MinPreference:  floats.Min(prefs),
		MaxPreference:  floats.Max(prefs),
	}
	if len(prefs) > 1 {
		s.StdPreference = stat.StdDev(prefs, nil)
	}
	return s
}

// Preferences extracts the preference score of every sequence.
func Preferences(data []Sequence) []float64 {
	out := make([]float64, len(data))
	for i, s := range data {
		out[i] = s.Preference
	}
	return out
}
