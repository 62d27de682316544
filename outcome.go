package resolver

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/nsloop/recur/taskqueue"
)

// OutcomeKind replaces the exception hierarchy the original engine used
// internally (ImmediateServFail/PolicyHit/SendTruncatedAnswer) with a small
// tagged result, per spec.md §7: recoverable errors are absorbed in the
// iterative loop, fatal ones unwind to Resolve's boundary as one of these
// kinds.
type OutcomeKind int

const (
	OutcomeGeneric OutcomeKind = iota
	OutcomeDomainError   // NXDOMAIN/NODATA surfaced as a terminal result, not a failure
	OutcomeResourceLimit // query/depth/CNAME budget exceeded
	OutcomePolicyHit     // a don't-query netmask or similar policy rejected the step
	OutcomeServFail      // validation-bogus-with-validation-required or immediate servfail
)

// Outcome is the tagged error the engine returns from internal steps when a
// step cannot simply be retried against another candidate. It implements
// taskqueue.Kinded so background-task accounting can classify it without
// taskqueue importing this package.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Err     error
}

func (o *Outcome) Error() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Message, o.Err)
	}
	return o.Message
}

func (o *Outcome) Unwrap() error { return o.Err }

// ExtendedCode maps the outcome's underlying error to an RFC 8914 Extended
// DNS Error info code, for attaching to a synthesized SERVFAIL answer.
func (o *Outcome) ExtendedCode() uint16 {
	if o.Err != nil {
		return ExtendedErrorCodeFromError(o.Err)
	}
	return dns.ExtendedErrorCodeOther
}

// TaskExceptionKind implements taskqueue.Kinded.
func (o *Outcome) TaskExceptionKind() taskqueue.ExceptionKind {
	switch o.Kind {
	case OutcomeDomainError:
		return taskqueue.ExDomainError
	case OutcomeServFail:
		return taskqueue.ExServFail
	case OutcomePolicyHit:
		return taskqueue.ExPolicyHit
	case OutcomeResourceLimit:
		return taskqueue.ExOther
	default:
		return taskqueue.ExGeneric
	}
}

func newOutcome(kind OutcomeKind, message string, err error) *Outcome {
	return &Outcome{Kind: kind, Message: message, Err: err}
}

var (
	errResourceLimit = newOutcome(OutcomeResourceLimit, "resource limit exceeded", nil)
)
