package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloudent/reputation-node/log"
	stg "github.com/cloudent/reputation-node/storage"
	"github.com/cloudent/reputation-node/types"
)

// newAgent registers a new agent in the marketplace.
func (a *API) newAgent(w http.ResponseWriter, r *http.Request) {
	req := &NewAgentRequest{}
	if !httpReadJSON(w, r, req) {
		return
	}
	if req.Name == "" {
		ErrMissingAgentName.Write(w)
		return
	}
	agent := &types.Agent{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Creator:     req.Creator,
		CreatedAt:   time.Now(),
	}
	if err := a.storage.SetAgent(agent); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	log.Infow("agent registered", "id", agent.ID, "name", agent.Name)
	httpWriteJSON(w, agent)
}

// agent returns a single agent by ID.
func (a *API) agent(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	httpWriteJSON(w, agent)
}

// agentList returns all registered agents.
func (a *API) agentList(w http.ResponseWriter, _ *http.Request) {
	agents, err := a.storage.ListAgents()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &AgentList{Agents: agents})
}

// newReview stores a review for an agent, hashing its content at ingest.
func (a *API) newReview(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	req := &NewReviewRequest{}
	if !httpReadJSON(w, r, req) {
		return
	}
	if req.Rating < types.MinRating || req.Rating > types.MaxRating {
		ErrInvalidRating.Withf("got %d", req.Rating).Write(w)
		return
	}
	review := &types.Review{
		AgentID:     agent.ID,
		Author:      req.Author,
		Rating:      req.Rating,
		ContentHash: types.HexBytes(crypto.Keccak256([]byte(req.Content))),
		CreatedAt:   time.Now(),
	}
	if err := a.storage.AddReview(review); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, review)
}

// reviewList returns the reviews of an agent, most recent first.
func (a *API) reviewList(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	reviews, err := a.storage.ReviewsByAgent(agent.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &ReviewList{Reviews: reviews})
}

// newMonitoringSample appends a monitoring measurement to an agent.
func (a *API) newMonitoringSample(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	sample := types.MonitoringSample{}
	if !httpReadJSON(w, r, &sample) {
		return
	}
	if err := a.storage.AppendMonitoringSample(agent.ID, sample); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// newEmployment stores an employment relationship for an agent.
func (a *API) newEmployment(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	req := &NewEmploymentRequest{}
	if !httpReadJSON(w, r, req) {
		return
	}
	employment := &types.Employment{
		AgentID:   agent.ID,
		User:      req.User,
		CreatedAt: time.Now(),
	}
	if err := a.storage.AddEmployment(employment); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, employment)
}

// employmentList returns the employments of an agent.
func (a *API) employmentList(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	employments, err := a.storage.EmploymentsByAgent(agent.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &EmploymentList{Employments: employments})
}

// agentFromRequest resolves the agent referenced by the URL, writing the
// not-found error when it does not exist.
func (a *API) agentFromRequest(w http.ResponseWriter, r *http.Request) (*types.Agent, bool) {
	agentID := chi.URLParam(r, AgentURLParam)
	agent, err := a.storage.Agent(agentID)
	if err != nil {
		if errors.Is(err, stg.ErrNotFound) {
			ErrAgentNotFound.Withf("id %s", agentID).Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return nil, false
	}
	return agent, true
}
