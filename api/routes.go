package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// AgentsEndpoint is the endpoint for registering and listing agents
	AgentsEndpoint = "/agents"
	// AgentURLParam is the URL parameter carrying the agent identifier
	AgentURLParam = "agentId"
	// AgentEndpoint is the endpoint to get a single agent
	AgentEndpoint = "/agents/{" + AgentURLParam + "}"
	// ReviewsEndpoint is the endpoint for submitting and listing reviews
	ReviewsEndpoint = AgentEndpoint + "/reviews"
	// MonitoringEndpoint is the endpoint for appending monitoring samples
	MonitoringEndpoint = AgentEndpoint + "/monitoring"
	// EmploymentsEndpoint is the endpoint for employment relationships
	EmploymentsEndpoint = AgentEndpoint + "/employments"
	// CircuitInputEndpoint exposes the encoded circuit input of an agent
	CircuitInputEndpoint = AgentEndpoint + "/circuit-input"
	// ProofsEndpoint lists the proof records of an agent
	ProofsEndpoint = AgentEndpoint + "/proofs"
	// GenerateProofEndpoint runs proof generation and submission for an agent
	GenerateProofEndpoint = AgentEndpoint + "/proofs/generate"
	// JobURLParam is the URL parameter carrying the aggregation job identifier
	JobURLParam = "jobId"
	// WaitAggregationEndpoint waits for a submitted job to reach a terminal
	// state and writes the proof record
	WaitAggregationEndpoint = "/proofs/wait-aggregation/{" + JobURLParam + "}"
)
