package timers

import (
	"regexp"
	"slices"
	"strings"

	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/models"
)

// cloneSuffixPattern builds the trailing-suffix matcher for cloned cards.
// Any dash variant is accepted and whitespace around it is ignored, so
// " – 1h", "-1h" and " —  1H " all match.
func cloneSuffixPattern(suffix string) *regexp.Regexp {
	body := strings.TrimSpace(suffix)
	body = strings.TrimLeft(body, "-–— ")
	if body == "" {
		body = "1h"
	}
	return regexp.MustCompile(`(?i)\s*[-–—]\s*` + regexp.QuoteMeta(strings.TrimSpace(body)) + `\s*$`)
}

// Classifier maps cards to their Classification. It is safe for concurrent use.
type Classifier struct {
	cfg   config.Config
	clone *regexp.Regexp
}

func NewClassifier(cfg config.Config) *Classifier {
	return &Classifier{cfg: cfg, clone: cloneSuffixPattern(cfg.CloneSuffix)}
}

// Classify is the one-off form of Classifier.Classify.
func Classify(card models.Card, cfg config.Config) models.Classification {
	return NewClassifier(cfg).Classify(card)
}

// Classify never guesses: a timer card with zero or several distinct cadence
// labels is Unrecognized. Two board labels sharing a name count once. The
// timer label wins over a clone-looking name.
func (c *Classifier) Classify(card models.Card) models.Classification {
	if card.HasLabel(c.cfg.TimerLabel) {
		var matched []string
		for _, l := range card.Labels {
			if _, ok := c.cfg.Cadence(l); ok {
				matched = append(matched, strings.ToLower(l))
			}
		}
		slices.Sort(matched)
		matched = slices.Compact(matched)
		if len(matched) != 1 {
			return models.Classification{Kind: models.KindUnrecognized, Matched: matched}
		}
		cad, _ := c.cfg.Cadence(matched[0])
		return models.Classification{Kind: models.KindTimer, Cadence: cad}
	}

	if c.clone.MatchString(card.Name) {
		return models.Classification{Kind: models.KindDuplicateClone}
	}
	return models.Classification{Kind: models.KindRitual}
}
