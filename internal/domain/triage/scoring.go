package triage

import (
	"strconv"
	"strings"
)

// ScoringConfig holds every constant of the priority formula. The zero value
// is not usable; start from DefaultScoringConfig and override as needed so
// the formula stays defined in exactly one place.
type ScoringConfig struct {
	// SeverityBase maps each severity tier to its base points.
	SeverityBase map[Severity]int
	// DefaultBase is used when the severity is not in SeverityBase. A
	// malformed request must not crash scoring, so unknown tiers fall back
	// to the medium base rather than erroring.
	DefaultBase int

	// Age bands. Both bonuses stack for the most extreme ages, so the
	// adjustment is monotonically larger the further from the middle.
	YoungAge      int // exclusive upper bound, e.g. under 18
	ElderlyAge    int // exclusive lower bound, e.g. over 65
	AgeBonus      int
	VeryYoungAge  int // under 5
	VeryOldAge    int // over 80
	ExtremeABonus int

	// Keywords maps urgent condition categories to their weights. Each
	// category lists the substrings that place a condition in it; matching
	// categories are additive, terms within one category are not.
	Keywords []KeywordCategory

	// Vital-sign threshold bands. Each abnormal vital independently adds
	// its bonus.
	HeartRateHigh   int
	HeartRateLow    int
	HeartRateBonus  int
	SystolicHigh    int
	SystolicLow     int
	SystolicBonus   int
	SpO2Warning     float64
	SpO2WarnBonus   int
	SpO2Severe      float64
	SpO2SevereBonus int
	TempHigh        float64 // Fahrenheit
	TempLow         float64
	TempBonus       int

	// MaxScore caps the accumulated total.
	MaxScore int
}

// KeywordCategory is one clinically urgent condition category.
type KeywordCategory struct {
	Name   string
	Terms  []string
	Weight int
}

// DefaultScoringConfig returns the canonical scoring table. Tests assert
// literal sums against these constants, so changing one is a behavior change.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SeverityBase: map[Severity]int{
			SeverityCritical: 100,
			SeverityHigh:     75,
			SeverityMedium:   50,
			SeverityLow:      25,
		},
		DefaultBase: 50,

		YoungAge:      18,
		ElderlyAge:    65,
		AgeBonus:      20,
		VeryYoungAge:  5,
		VeryOldAge:    80,
		ExtremeABonus: 30,

		Keywords: []KeywordCategory{
			{Name: "stroke", Terms: []string{"stroke", "neurological", "unconscious", "seizure"}, Weight: 35},
			{Name: "trauma", Terms: []string{"trauma", "head injury"}, Weight: 30},
			{Name: "poisoning", Terms: []string{"poisoning", "overdose"}, Weight: 30},
			{Name: "cardiac", Terms: []string{"cardiac", "chest pain", "heart attack"}, Weight: 25},
			{Name: "bleeding", Terms: []string{"bleeding", "hemorrhage"}, Weight: 25},
			{Name: "respiratory", Terms: []string{"respiratory", "breathing", "shortness of breath"}, Weight: 20},
			{Name: "burn", Terms: []string{"burn"}, Weight: 20},
			{Name: "fracture", Terms: []string{"fracture"}, Weight: 15},
		},

		HeartRateHigh:   120,
		HeartRateLow:    50,
		HeartRateBonus:  15,
		SystolicHigh:    180,
		SystolicLow:     90,
		SystolicBonus:   15,
		SpO2Warning:     95,
		SpO2WarnBonus:   25,
		SpO2Severe:      90,
		SpO2SevereBonus: 35,
		TempHigh:        102,
		TempLow:         95,
		TempBonus:       15,

		MaxScore: 200,
	}
}

// Scorer computes priority scores from clinical intake fields. It holds no
// mutable state; Score is deterministic and safe for concurrent use.
type Scorer struct {
	cfg ScoringConfig
}

// NewScorer returns a Scorer using the given configuration.
func NewScorer(cfg ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score accumulates points from severity, age, condition keywords and any
// vital signs present, then clamps the total to [0, MaxScore]. Higher means
// more urgent. Ties between equal scores are the queue's business, not the
// scorer's.
func (s *Scorer) Score(severity Severity, condition string, age int, vitals *VitalSigns) int {
	score := s.cfg.DefaultBase
	if base, ok := s.cfg.SeverityBase[severity]; ok {
		score = base
	}

	if age < s.cfg.YoungAge || age > s.cfg.ElderlyAge {
		score += s.cfg.AgeBonus
	}
	if age < s.cfg.VeryYoungAge || age > s.cfg.VeryOldAge {
		score += s.cfg.ExtremeABonus
	}

	lower := strings.ToLower(condition)
	for _, cat := range s.cfg.Keywords {
		for _, term := range cat.Terms {
			if strings.Contains(lower, term) {
				score += cat.Weight
				break
			}
		}
	}

	score += s.vitalsBonus(vitals)

	if score > s.cfg.MaxScore {
		score = s.cfg.MaxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (s *Scorer) vitalsBonus(v *VitalSigns) int {
	if v == nil {
		return 0
	}
	bonus := 0

	if v.HeartRate != nil {
		if *v.HeartRate > s.cfg.HeartRateHigh || *v.HeartRate < s.cfg.HeartRateLow {
			bonus += s.cfg.HeartRateBonus
		}
	}
	if v.BloodPressure != nil {
		// An unparsable reading contributes nothing; it is not an error.
		if systolic, ok := parseSystolic(*v.BloodPressure); ok {
			if systolic > s.cfg.SystolicHigh || systolic < s.cfg.SystolicLow {
				bonus += s.cfg.SystolicBonus
			}
		}
	}
	if v.OxygenSaturation != nil {
		if *v.OxygenSaturation < s.cfg.SpO2Warning {
			bonus += s.cfg.SpO2WarnBonus
		}
		if *v.OxygenSaturation < s.cfg.SpO2Severe {
			bonus += s.cfg.SpO2SevereBonus
		}
	}
	if v.Temperature != nil {
		if *v.Temperature > s.cfg.TempHigh || *v.Temperature < s.cfg.TempLow {
			bonus += s.cfg.TempBonus
		}
	}
	return bonus
}

// parseSystolic extracts the systolic number from a "systolic/diastolic"
// reading such as "120/80".
func parseSystolic(bp string) (int, bool) {
	first, _, _ := strings.Cut(bp, "/")
	n, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, false
	}
	return n, true
}
