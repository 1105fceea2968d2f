package engine

import (
	"github.com/SAP-F-2025/adaptive-testing-service/internal/irt"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/pool"
)

// exposureTotalFloor keeps the exposure cap meaningful before the pool has
// accumulated administrations: the cap is computed against at least this many
// total administrations.
const exposureTotalFloor = 20

// Selector chooses the next item to administer. It is stateless; all inputs
// come from the session and the pool snapshot.
type Selector struct{}

func NewSelector() *Selector {
	return &Selector{}
}

// SelectNext picks the unadministered item with maximum Fisher information at
// the session's current theta, subject to exposure control and topic
// balancing, and records the item's exposure. Returns nil when no eligible
// item remains; the stopping rule treats that as a forced stop.
func (s *Selector) SelectNext(sess *models.Session, p *pool.Pool) (*models.Item, error) {
	item := s.pick(sess, p)
	if item == nil {
		return nil, nil
	}
	if err := p.RecordExposure(item.ID); err != nil {
		return nil, err
	}
	return item, nil
}

// HasEligible reports whether a selection attempt would succeed, without the
// exposure side effect. The stopping rule uses this for the pool_exhausted
// check.
func (s *Selector) HasEligible(sess *models.Session, p *pool.Pool) bool {
	return s.pick(sess, p) != nil
}

func (s *Selector) pick(sess *models.Session, p *pool.Pool) *models.Item {
	cfg := sess.Config.Data()
	cfg.ApplyDefaults()

	candidates := p.UnadministeredItems(sess.AdministeredItemIDs())
	if len(candidates) == 0 {
		return nil
	}

	if cfg.ExposureControl {
		candidates = filterOverexposed(candidates, p, cfg.ExposureCapRatio)
		if len(candidates) == 0 {
			return nil
		}
	}

	var penalties map[string]float64
	if cfg.TopicBalancing {
		penalties = topicPenalties(sess, p, cfg.TopicPenaltyWeight)
	}

	// Candidates arrive in ascending id order and the comparison is strict,
	// so ties deterministically resolve to the lowest item id.
	var best *models.Item
	bestScore := -1.0
	for _, item := range candidates {
		score := irt.Information(sess.Theta, item)
		if penalty, ok := penalties[item.Topic]; ok {
			score *= penalty
		}
		if score > bestScore {
			best = item
			bestScore = score
		}
	}
	return best
}

// filterOverexposed drops items whose exposure count exceeds the configured
// share of total administrations across the pool. Counts are point-in-time
// snapshots; slight staleness across concurrent sessions is tolerated.
func filterOverexposed(candidates []*models.Item, p *pool.Pool, capRatio float64) []*models.Item {
	total := p.TotalAdministrations()
	if total < exposureTotalFloor {
		total = exposureTotalFloor
	}
	limit := capRatio * float64(total)

	kept := candidates[:0]
	for _, item := range candidates {
		if float64(p.Exposure(item.ID)) <= limit {
			kept = append(kept, item)
		}
	}
	return kept
}

// topicPenalties maps each over-represented topic to a multiplicative
// information penalty in (0,1]. The implicit target is a uniform share per
// pool topic. Under-represented topics get no penalty, and the penalty never
// reaches zero, so balancing re-ranks but never empties the candidate set.
func topicPenalties(sess *models.Session, p *pool.Pool, weight float64) map[string]float64 {
	poolTopics := make(map[string]struct{})
	for _, item := range p.Items() {
		poolTopics[item.Topic] = struct{}{}
	}
	if len(poolTopics) < 2 || len(sess.Responses) == 0 {
		return nil
	}
	targetShare := 1.0 / float64(len(poolTopics))

	administered := make(map[string]int)
	for _, r := range sess.Responses {
		if item, err := p.GetItem(r.ItemID); err == nil {
			administered[item.Topic]++
		}
	}

	penalties := make(map[string]float64)
	totalAdministered := float64(len(sess.Responses))
	for topic, count := range administered {
		over := float64(count)/totalAdministered - targetShare
		if over <= 0 {
			continue
		}
		penalty := 1 - weight*over
		if penalty < 1-weight {
			penalty = 1 - weight
		}
		penalties[topic] = penalty
	}
	return penalties
}
