package storage

import (
	"fmt"

	"github.com/cloudent/reputation-node/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// AddReview stores an immutable review for an agent. It fails if the agent
// does not exist or the rating is out of range.
func (s *Storage) AddReview(review *types.Review) error {
	if review.Rating < types.MinRating || review.Rating > types.MaxRating {
		return fmt.Errorf("rating %d out of range [%d,%d]",
			review.Rating, types.MinRating, types.MaxRating)
	}
	if _, err := s.Agent(review.AgentID); err != nil {
		return err
	}
	key := composeKey(review.AgentID, invTimestamp(review.CreatedAt.UnixNano()))
	key = append(key, review.ContentHash...)
	return s.setArtifact(reviewPrefix, key, review)
}

// ReviewsByAgent returns the reviews of an agent, most recent first.
func (s *Storage) ReviewsByAgent(agentID string) ([]*types.Review, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, reviewPrefix)
	var reviews []*types.Review
	var iterErr error
	if err := rTx.Iterate([]byte(agentID+"/"), func(_, v []byte) bool {
		review := &types.Review{}
		if err := decodeArtifact(v, review); err != nil {
			iterErr = err
			return false
		}
		reviews = append(reviews, review)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return reviews, nil
}
