/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package sanitize

// Run kinds stored on runs created by the runner-command queue. Every job
// kind outside the known set collapses to RunKindCustom.
const (
	RunKindBootstrap = "bootstrap"
	RunKindGitPush   = "git_push"
	RunKindCustom    = "custom"
)

// ResolveRunKind maps an arbitrary runner-job kind onto the closed set of
// run kinds.
func ResolveRunKind(jobKind string) string {
	switch jobKind {
	case RunKindBootstrap:
		return RunKindBootstrap
	case RunKindGitPush:
		return RunKindGitPush
	default:
		return RunKindCustom
	}
}
