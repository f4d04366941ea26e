package probe

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/fluency/pkg/logger"
)

// damageStep is the damage dealt by a single hesitation.
const damageStep = 10

// Speaker profiles used to vary per-attempt damage.
const (
	profileFluent = iota
	profileOccasional
	profileHesitant
	profileWide
	profileCount
)

var bands = []string{"band_5.5", "band_6.0", "band_6.5", "band_7.0", "band_7.5", "band_8.0", "band_8.5", "band_9.0"}

// generateSubmissions builds AttemptsPerUser submissions for each of Users
// fresh user ids, shuffled so one user's attempts land on different workers.
func generateSubmissions(ctx context.Context, config *Config, stats *Stats) ([]Submission, map[string]Expected, error) {
	if config.Users <= 0 || config.AttemptsPerUser <= 0 {
		return nil, nil, fmt.Errorf("users and attempts must be positive: users=%d attempts=%d",
			config.Users, config.AttemptsPerUser)
	}
	logger.Get().Info(ctx, "generating submissions",
		logger.Int("users", config.Users),
		logger.Int("attemptsPerUser", config.AttemptsPerUser))

	expected := make(map[string]Expected, config.Users)
	subs := make([]Submission, 0, config.Users*config.AttemptsPerUser)

	for i := 0; i < config.Users; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		id := uuid.NewString()
		name := "probe_" + strconv.Itoa(i)
		profile := rand.IntN(profileCount)

		exp := Expected{Username: name}
		for a := 0; a < config.AttemptsPerUser; a++ {
			sub := Submission{
				UserID:   id,
				Username: name,
				Damage:   attemptDamage(profile, config.MaxDamage),
			}
			if rand.IntN(2) == 0 {
				sub.BandScore = bands[rand.IntN(len(bands))]
			}
			exp.TotalDamage += sub.Damage
			exp.Attempts++
			subs = append(subs, sub)
		}
		expected[id] = exp
	}

	rand.Shuffle(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] })

	stats.UsersGenerated = len(expected)
	logger.Get().Info(ctx, "generated submissions", logger.Int("count", len(subs)))
	return subs, expected, nil
}

// attemptDamage returns a damage value in [0, maxDamage] shaped by profile.
func attemptDamage(profile, maxDamage int) int {
	if maxDamage <= 0 {
		return 0
	}
	steps := maxDamage / damageStep
	if steps == 0 {
		return rand.IntN(maxDamage + 1)
	}
	switch profile {
	case profileFluent:
		return 0
	case profileOccasional:
		return damageStep * rand.IntN(min(steps, 3)+1)
	case profileHesitant:
		lo := steps / 2
		return damageStep * (lo + rand.IntN(steps-lo+1))
	default:
		return rand.IntN(maxDamage + 1)
	}
}
