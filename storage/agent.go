package storage

import (
	"fmt"

	"github.com/cloudent/reputation-node/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// SetAgent stores or overwrites an agent.
func (s *Storage) SetAgent(agent *types.Agent) error {
	if agent.ID == "" {
		return fmt.Errorf("agent has no ID")
	}
	return s.setArtifact(agentPrefix, []byte(agent.ID), agent)
}

// Agent retrieves an agent by ID. Returns ErrNotFound if it does not exist.
func (s *Storage) Agent(id string) (*types.Agent, error) {
	agent := &types.Agent{}
	if err := s.getArtifact(agentPrefix, []byte(id), agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// ListAgents returns all stored agents.
func (s *Storage) ListAgents() ([]*types.Agent, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, agentPrefix)
	var agents []*types.Agent
	var iterErr error
	if err := rTx.Iterate(nil, func(_, v []byte) bool {
		agent := &types.Agent{}
		if err := decodeArtifact(v, agent); err != nil {
			iterErr = err
			return false
		}
		agents = append(agents, agent)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return agents, nil
}

// AppendMonitoringSample appends one monitoring measurement to an agent's
// history. The three parallel slices grow in lockstep.
func (s *Storage) AppendMonitoringSample(agentID string, sample types.MonitoringSample) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	agent, err := s.Agent(agentID)
	if err != nil {
		return err
	}
	agent.Uptime = append(agent.Uptime, sample.UptimeHours)
	agent.AvgExecTime = append(agent.AvgExecTime, sample.AvgExecTimeMs)
	agent.RequestsPerDay = append(agent.RequestsPerDay, sample.RequestCount)
	return s.SetAgent(agent)
}

// AddEmployment stores an active user/agent relationship.
func (s *Storage) AddEmployment(e *types.Employment) error {
	if _, err := s.Agent(e.AgentID); err != nil {
		return err
	}
	key := composeKey(e.AgentID, e.User.Bytes())
	return s.setArtifact(employPrefix, key, e)
}

// EmploymentsByAgent returns the employments of an agent.
func (s *Storage) EmploymentsByAgent(agentID string) ([]*types.Employment, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, employPrefix)
	var employments []*types.Employment
	var iterErr error
	if err := rTx.Iterate([]byte(agentID+"/"), func(_, v []byte) bool {
		e := &types.Employment{}
		if err := decodeArtifact(v, e); err != nil {
			iterErr = err
			return false
		}
		employments = append(employments, e)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return employments, nil
}
