package config

const (
	// Artifacts of the reputation circuit, built from the cloudent circom
	// sources. The hashes are the sha256 of each file.
	ReputationCircuitURL          = "https://artifacts.cloudent.io/circuits/dev/cloudent.wasm"
	ReputationCircuitHash         = "8b1f52f42af5760d6e01442b8ff1ac8146a4f9937909b99c96034be5d27bd001"
	ReputationProvingKeyURL       = "https://artifacts.cloudent.io/circuits/dev/cloudent.zkey"
	ReputationProvingKeyHash      = "2a9d2c39b38cb1d5bd08e3a6c6c92db04c3b0e4f279e7ad2ab2f8cf012aa8e02"
	ReputationVerificationKeyURL  = "https://artifacts.cloudent.io/circuits/dev/verification_key.json"
	ReputationVerificationKeyHash = "91c1a24fbe02c4d70ff16e0f1a25d3b2ad9cb1762704bb3ce9f15d3ba5b7de03"
)
