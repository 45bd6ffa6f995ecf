// Package errors provides structured error handling for the commission engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Rule errors
	CodeRuleLevelInvalid         Code = "RULE_LEVEL_INVALID"
	CodeRuleTargetRequired       Code = "RULE_TARGET_REQUIRED"
	CodeRuleTargetForbidden      Code = "RULE_TARGET_FORBIDDEN"
	CodeRulePercentageOutOfRange Code = "RULE_PERCENTAGE_OUT_OF_RANGE"
	CodeRuleNotFound             Code = "RULE_NOT_FOUND"

	// Membership discount errors
	CodeMembershipIDRequired         Code = "MEMBERSHIP_ID_REQUIRED"
	CodeDiscountPercentageOutOfRange Code = "DISCOUNT_PERCENTAGE_OUT_OF_RANGE"
	CodeDiscountNotFound             Code = "DISCOUNT_NOT_FOUND"

	// Resolution errors
	CodeGlobalRuleNotConfigured Code = "GLOBAL_RULE_NOT_CONFIGURED"

	// Batch errors
	CodeBatchSizeOutOfRange Code = "BATCH_SIZE_OUT_OF_RANGE"

	// Analytics errors
	CodeAnalyticsWindowInvalid Code = "ANALYTICS_WINDOW_INVALID"
	CodeAnalyticsWindowTooWide Code = "ANALYTICS_WINDOW_TOO_WIDE"

	// Audit errors
	CodeActorIDRequired    Code = "ACTOR_ID_REQUIRED"
	CodeAuditWriteFailed   Code = "AUDIT_WRITE_FAILED"
	CodeAuditFilterInvalid Code = "AUDIT_FILTER_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)

// GRPCCode maps engine codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeRuleLevelInvalid,
		CodeRuleTargetRequired,
		CodeRuleTargetForbidden,
		CodeRulePercentageOutOfRange,
		CodeMembershipIDRequired,
		CodeDiscountPercentageOutOfRange,
		CodeBatchSizeOutOfRange,
		CodeAnalyticsWindowInvalid,
		CodeAnalyticsWindowTooWide,
		CodeActorIDRequired,
		CodeAuditFilterInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - the platform must always carry a global default
	case CodeGlobalRuleNotConfigured:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeRuleNotFound,
		CodeDiscountNotFound:
		return codes.NotFound

	// Aborted - write races resolved by storage constraints
	case CodeConflict:
		return codes.Aborted

	default:
		return codes.Internal
	}
}
