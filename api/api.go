package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cloudent/reputation-node/log"
	"github.com/cloudent/reputation-node/pipeline"
	stg "github.com/cloudent/reputation-node/storage"
	"github.com/cloudent/reputation-node/types"
)

// ProofPipeline is the proof cycle surface the API exposes: on-demand
// generation for one agent and waiting on a submitted job.
type ProofPipeline interface {
	GenerateAndSubmit(ctx context.Context, agentID string) (*pipeline.SubmissionReceipt, error)
	WaitAndRecord(ctx context.Context, jobID string) (*types.ProofRecord, error)
}

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the storage and pipeline instances.
type APIConfig struct {
	Host     string
	Port     int
	Storage  *stg.Storage
	Pipeline ProofPipeline
}

// API type represents the API HTTP server.
type API struct {
	router   *chi.Mux
	storage  *stg.Storage
	pipeline ProofPipeline
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	a := &API{
		storage:  conf.Storage,
		pipeline: conf.Pipeline,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", AgentsEndpoint, "method", "POST")
	a.router.Post(AgentsEndpoint, a.newAgent)
	log.Infow("register handler", "endpoint", AgentsEndpoint, "method", "GET")
	a.router.Get(AgentsEndpoint, a.agentList)
	log.Infow("register handler", "endpoint", AgentEndpoint, "method", "GET")
	a.router.Get(AgentEndpoint, a.agent)
	log.Infow("register handler", "endpoint", ReviewsEndpoint, "method", "POST")
	a.router.Post(ReviewsEndpoint, a.newReview)
	log.Infow("register handler", "endpoint", ReviewsEndpoint, "method", "GET")
	a.router.Get(ReviewsEndpoint, a.reviewList)
	log.Infow("register handler", "endpoint", MonitoringEndpoint, "method", "POST")
	a.router.Post(MonitoringEndpoint, a.newMonitoringSample)
	log.Infow("register handler", "endpoint", EmploymentsEndpoint, "method", "POST")
	a.router.Post(EmploymentsEndpoint, a.newEmployment)
	log.Infow("register handler", "endpoint", EmploymentsEndpoint, "method", "GET")
	a.router.Get(EmploymentsEndpoint, a.employmentList)
	log.Infow("register handler", "endpoint", CircuitInputEndpoint, "method", "GET")
	a.router.Get(CircuitInputEndpoint, a.circuitInput)
	log.Infow("register handler", "endpoint", ProofsEndpoint, "method", "GET")
	a.router.Get(ProofsEndpoint, a.proofRecordList)
	log.Infow("register handler", "endpoint", GenerateProofEndpoint, "method", "POST")
	a.router.Post(GenerateProofEndpoint, a.generateProof)
	log.Infow("register handler", "endpoint", WaitAggregationEndpoint, "method", "POST")
	a.router.Post(WaitAggregationEndpoint, a.waitAggregation)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	// the aggregation wait endpoint can block for minutes
	a.router.Use(middleware.Timeout(15 * time.Minute))

	// Register the API handlers
	a.registerHandlers()
}
