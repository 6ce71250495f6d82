package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
)

const testAPIKey = "test-api-key"

func TestClientRegisterVK(t *testing.T) {
	c := qt.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Assert(r.Method, qt.Equals, http.MethodPost)
		c.Assert(r.URL.Path, qt.Equals, "/register-vk/"+testAPIKey)
		var req RegisterVKRequest
		c.Assert(json.NewDecoder(r.Body).Decode(&req), qt.IsNil)
		c.Assert(req.ProofType, qt.Equals, ProofType)
		c.Assert(req.ProofOptions.Library, qt.Equals, ProofLibrary)
		c.Assert(req.ProofOptions.Curve, qt.Equals, ProofCurve)
		_ = json.NewEncoder(w).Encode(map[string]any{"vkHash": "0xdeadbeef"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, testAPIKey)
	c.Assert(err, qt.IsNil)
	res, err := client.RegisterVK(context.Background(), json.RawMessage(`{"curve":"bn128"}`))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Hash(), qt.Equals, "0xdeadbeef")
}

func TestClientMissingAPIKey(t *testing.T) {
	c := qt.New(t)
	_, err := NewClient("http://localhost", "")
	c.Assert(err, qt.IsNotNil)
}

func TestClientDecodesAPIError(t *testing.T) {
	c := qt.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"REGISTER_VK_FAILED","message":"vk already registered","meta":{"vkHash":"0xabc"}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, testAPIKey)
	c.Assert(err, qt.IsNil)
	_, err = client.RegisterVK(context.Background(), json.RawMessage(`{}`))
	c.Assert(err, qt.IsNotNil)

	apiErr := &APIError{}
	c.Assert(errors.As(err, &apiErr), qt.IsTrue)
	c.Assert(apiErr.Code, qt.Equals, "REGISTER_VK_FAILED")
	c.Assert(apiErr.HTTPStatus, qt.Equals, http.StatusBadRequest)
	hash, ok := apiErr.AlreadyRegistered()
	c.Assert(ok, qt.IsTrue)
	c.Assert(hash, qt.Equals, "0xabc")
}

func TestClientSubmitProof(t *testing.T) {
	c := qt.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Assert(r.URL.Path, qt.Equals, "/submit-proof/"+testAPIKey)
		var req SubmitProofRequest
		c.Assert(json.NewDecoder(r.Body).Decode(&req), qt.IsNil)
		c.Assert(req.VKRegistered, qt.IsTrue)
		c.Assert(req.ChainID, qt.Equals, int64(DefaultChainID))
		c.Assert(req.ProofData.VK, qt.Equals, "0xdeadbeef")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"optimisticVerify": "success",
			"jobId":            "job-42",
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, testAPIKey)
	c.Assert(err, qt.IsNil)
	res, err := client.SubmitProof(context.Background(), &SubmitProofRequest{
		ProofType:    ProofType,
		VKRegistered: true,
		ChainID:      DefaultChainID,
		ProofOptions: DefaultProofOptions(),
		ProofData: ProofData{
			Proof:         json.RawMessage(`{"pi_a":[]}`),
			PublicSignals: []string{"466", "3"},
			VK:            "0xdeadbeef",
		},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(res.OptimisticVerify, qt.Equals, OptimisticVerifySuccess)
	c.Assert(res.JobID, qt.Equals, "job-42")
}

func TestClientJobStatus(t *testing.T) {
	c := qt.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Assert(r.Method, qt.Equals, http.MethodGet)
		c.Assert(r.URL.Path, qt.Equals, "/job-status/"+testAPIKey+"/job-42")
		_, _ = w.Write([]byte(`{
			"status": "Aggregated",
			"txHash": "0xtx",
			"blockHash": "0xblock",
			"aggregationId": 7,
			"aggregationDetails": {
				"receipt": "0xreceipt",
				"receiptBlockHash": "0xrblock",
				"root": "0xroot",
				"leaf": "0xleaf",
				"leafIndex": 3,
				"numberOfLeaves": 8
			}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, testAPIKey)
	c.Assert(err, qt.IsNil)
	res, err := client.JobStatus(context.Background(), "job-42")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Status, qt.Equals, JobStatusAggregated)
	c.Assert(res.Terminal(), qt.IsTrue)
	c.Assert(res.TxHash, qt.Equals, "0xtx")
	c.Assert(res.AggregationID, qt.Equals, int64(7))
	c.Assert(res.AggregationDetails.Receipt, qt.Equals, "0xreceipt")
	c.Assert(res.AggregationDetails.LeafIndex, qt.Equals, int64(3))

	pending := &JobStatusResponse{Status: "InProgress"}
	c.Assert(pending.Terminal(), qt.IsFalse)
}
