/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runner_handlers

// HeartbeatRequest upserts a runner by (projectId, runnerName). The sealing
// fields advertise the runner's public key for the sealed-input protocol.
type HeartbeatRequest struct {
	RunnerName            string                 `json:"runnerName"`
	Status                string                 `json:"status"`
	Version               string                 `json:"version"`
	Capabilities          map[string]interface{} `json:"capabilities"`
	SealedInputAlg        string                 `json:"sealedInputAlg"`
	SealedInputKeyId      string                 `json:"sealedInputKeyId"`
	SealedInputPubSpkiB64 string                 `json:"sealedInputPubSpkiB64"`
}

// CreateTokenRequest issues a token for a named runner of the project.
type CreateTokenRequest struct {
	RunnerName string `json:"runnerName"`
}

// CreateTokenResponse returns the plaintext token exactly once.
type CreateTokenResponse struct {
	TokenId   string `json:"tokenId"`
	RunnerId  string `json:"runnerId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// TokenInfo is the hash-free view of a runner token.
type TokenInfo struct {
	TokenId    string `json:"tokenId"`
	ProjectId  string `json:"projectId"`
	RunnerId   string `json:"runnerId"`
	CreatedAt  int64  `json:"createdAt"`
	ExpiresAt  *int64 `json:"expiresAt,omitempty"`
	RevokedAt  *int64 `json:"revokedAt,omitempty"`
	LastUsedAt *int64 `json:"lastUsedAt,omitempty"`
}

// WiringEntry is one secret-wiring row of an upsertMany call.
type WiringEntry struct {
	SecretName string `json:"secretName"`
	Scope      string `json:"scope"`
	Status     string `json:"status"`
	Required   bool   `json:"required"`
}

// UpsertWiringRequest replaces the wiring state reported for one host.
type UpsertWiringRequest struct {
	HostName string        `json:"hostName"`
	Entries  []WiringEntry `json:"entries"`
}

// EnqueueJobRequest reserves a command for a target runner.
type EnqueueJobRequest struct {
	TargetRunnerId string                 `json:"targetRunnerId"`
	Kind           string                 `json:"kind"`
	PayloadMeta    map[string]interface{} `json:"payloadMeta"`
	WantsSealed    bool                   `json:"wantsSealed"`
}

// FinalizeJobRequest attaches the sealed payload to a reserved job.
type FinalizeJobRequest struct {
	SealedInputB64   string `json:"sealedInputB64"`
	SealedInputAlg   string `json:"sealedInputAlg"`
	SealedInputKeyId string `json:"sealedInputKeyId"`
}

// LookupTokenRequest resolves a token hash on the internal surface.
type LookupTokenRequest struct {
	TokenHash string `json:"tokenHash"`
}

// TouchTokenRequest updates a token's lastUsedAt on the internal surface.
type TouchTokenRequest struct {
	TokenId string `json:"tokenId"`
}

// JobResultRequest carries a runner's result for its claimed job.
type JobResultRequest struct {
	Status       string                 `json:"status"`
	ResultJson   map[string]interface{} `json:"resultJson"`
	ErrorMessage string                 `json:"errorMessage"`
}
