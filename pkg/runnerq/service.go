/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package runnerq implements the runner-command queue: the control plane
// reserves a job addressed to one runner, optionally attaches a payload the
// caller sealed under the runner's advertised public key, and collects the
// result. The control plane only ever stores the ciphertext blob; plaintext
// secrets never touch the database.
package runnerq

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/sanitize"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/jsonutil"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const (
	MaxPayloadMetaBytes = 16 * 1024
	MaxSealedInputBytes = 256 * 1024
	MaxResultJsonBytes  = 256 * 1024
)

// EnqueueInput describes one command to reserve for a runner. WantsSealed
// marks that the caller will attach a sealed payload via Finalize before
// the job becomes visible to the runner.
type EnqueueInput struct {
	ProjectId      string
	TargetRunnerId string
	Kind           string
	PayloadMeta    map[string]interface{}
	WantsSealed    bool
}

// EnqueueResult echoes the new ids plus the runner's currently advertised
// sealing key material, which the caller needs to encrypt its payload.
type EnqueueResult struct {
	JobId                 string `json:"jobId"`
	RunId                 string `json:"runId"`
	SealedInputAlg        string `json:"sealedInputAlg,omitempty"`
	SealedInputKeyId      string `json:"sealedInputKeyId,omitempty"`
	SealedInputPubSpkiB64 string `json:"sealedInputPubSpkiB64,omitempty"`
}

// FinalizeInput attaches a sealed payload to a reserved job.
type FinalizeInput struct {
	ProjectId        string
	JobId            string
	SealedInputB64   string
	SealedInputAlg   string
	SealedInputKeyId string
}

// ResultInput carries a runner's result for a claimed job.
type ResultInput struct {
	JobId        string
	Status       string
	ResultJson   map[string]interface{}
	ErrorMessage string
}

// Service implements the queue protocol over the database client.
type Service struct {
	db dbclient.Interface
}

// NewService creates a queue Service.
func NewService(db dbclient.Interface) *Service {
	return &Service{db: db}
}

// Enqueue reserves a command for the target runner: it creates the backing
// Run, inserts the job row and echoes the runner's sealing key material.
// Jobs that expect a sealed payload start in awaiting_input and become
// visible to the runner only after Finalize.
func (s *Service) Enqueue(ctx context.Context, userId string, in *EnqueueInput) (*EnqueueResult, error) {
	runner, err := s.db.GetRunner(ctx, in.TargetRunnerId)
	if err != nil {
		return nil, err
	}
	if runner.ProjectId != in.ProjectId {
		return nil, commonerrors.NewNotFound("runner not found")
	}
	if err := sanitize.AssertNoSecretLikeKeys(in.PayloadMeta, "payloadMeta"); err != nil {
		return nil, err
	}
	meta := jsonutil.MarshalSilently(in.PayloadMeta)
	if len(meta) > MaxPayloadMetaBytes {
		return nil, commonerrors.NewConflict("payloadMeta exceeds size limit")
	}
	if in.WantsSealed && !runner.SealedInputAlg.Valid {
		return nil, commonerrors.NewConflict(
			fmt.Sprintf("runner %s does not advertise sealed-input capability", runner.RunnerName))
	}

	now := timeutil.NowMs()
	runId := uuid.NewString()
	err = s.db.InsertRun(ctx, &dbclient.Run{
		Id:                runId,
		ProjectId:         in.ProjectId,
		Kind:              sanitize.ResolveRunKind(in.Kind),
		Status:            dbclient.RunStatusRunning,
		Title:             sql.NullString{String: in.Kind, Valid: true},
		Host:              sql.NullString{String: runner.RunnerName, Valid: true},
		InitiatedByUserId: userId,
		StartedAt:         now,
	})
	if err != nil {
		return nil, err
	}

	status := dbclient.RunnerJobStatusQueued
	if in.WantsSealed {
		status = dbclient.RunnerJobStatusAwaitingInput
	}
	jobId := uuid.NewString()
	err = s.db.InsertRunnerJob(ctx, &dbclient.RunnerJob{
		Id:             jobId,
		ProjectId:      in.ProjectId,
		RunId:          runId,
		TargetRunnerId: in.TargetRunnerId,
		Kind:           in.Kind,
		Status:         status,
		PayloadMeta:    datatypes.JSON(meta),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	return &EnqueueResult{
		JobId:                 jobId,
		RunId:                 runId,
		SealedInputAlg:        runner.SealedInputAlg.String,
		SealedInputKeyId:      runner.SealedInputKeyId.String,
		SealedInputPubSpkiB64: runner.SealedInputPubSpkiB64.String,
	}, nil
}

// Finalize attaches the sealed ciphertext to a reserved job, making it
// eligible for pickup. The sealing algorithm and key id must match what
// the runner advertised at enqueue time.
func (s *Service) Finalize(ctx context.Context, in *FinalizeInput) error {
	if in.SealedInputB64 == "" {
		return commonerrors.NewConflict("sealedInputB64 is required")
	}
	if len(in.SealedInputB64) > MaxSealedInputBytes {
		return commonerrors.NewConflict("sealedInputB64 exceeds size limit")
	}
	job, err := s.db.GetRunnerJob(ctx, in.JobId)
	if err != nil {
		return err
	}
	if job.ProjectId != in.ProjectId {
		return commonerrors.NewNotFound("runner job not found")
	}
	runner, err := s.db.GetRunner(ctx, job.TargetRunnerId)
	if err != nil {
		return err
	}
	if !runner.SealedInputAlg.Valid ||
		runner.SealedInputAlg.String != in.SealedInputAlg ||
		runner.SealedInputKeyId.String != in.SealedInputKeyId {
		return commonerrors.NewConflict("sealing algorithm or key id does not match the runner's advertised key")
	}
	return s.db.FinalizeRunnerJobInput(ctx, in.JobId,
		in.SealedInputB64, in.SealedInputAlg, in.SealedInputKeyId, timeutil.NowMs())
}

// Claim hands the runner its oldest queued job, nil when the queue is
// empty.
func (s *Service) Claim(ctx context.Context, runnerId string) (*dbclient.RunnerJob, error) {
	return s.db.ClaimNextRunnerJob(ctx, runnerId, timeutil.NowMs())
}

// TakeRunResult stores the runner's result on the claimed job, moves the
// job to a terminal status and drives the backing run there too. Error
// messages pass through the sanitizer before they are persisted.
func (s *Service) TakeRunResult(ctx context.Context, runnerId string, in *ResultInput) error {
	if in.Status != dbclient.RunStatusSucceeded && in.Status != dbclient.RunStatusFailed {
		return commonerrors.NewConflict("result status must be succeeded or failed")
	}
	result := jsonutil.MarshalSilently(in.ResultJson)
	if len(result) > MaxResultJsonBytes {
		return commonerrors.NewConflict("resultJson exceeds size limit")
	}
	job, err := s.db.GetRunnerJob(ctx, in.JobId)
	if err != nil {
		return err
	}
	jobStatus := dbclient.RunnerJobStatusCompleted
	if in.Status == dbclient.RunStatusFailed {
		jobStatus = dbclient.RunnerJobStatusFailed
	}
	now := timeutil.NowMs()
	err = s.db.CompleteRunnerJob(ctx, in.JobId, runnerId, jobStatus, datatypes.JSON(result), now)
	if err != nil {
		return err
	}
	errorMessage := sql.NullString{}
	if in.Status == dbclient.RunStatusFailed && in.ErrorMessage != "" {
		errorMessage = sql.NullString{String: sanitize.SanitizeErrorMessage(in.ErrorMessage), Valid: true}
	}
	return s.db.UpdateRunStatus(ctx, job.RunId, in.Status,
		sql.NullInt64{Int64: now, Valid: true}, errorMessage)
}
