// Package dnssec defines the validation-state lattice the engine threads
// through every resolution step, plus the Verifier interface through which
// cryptographic signature verification is injected. The core never performs
// the cryptography itself (spec.md explicitly carves that out); it only
// combines verdicts according to the lattice below.
package dnssec

import "fmt"

// State is an element of the validation-state lattice
// {Indeterminate, Insecure, Secure, Bogus(kind)}.
type State int

const (
	Indeterminate State = iota
	Insecure
	Secure
	Bogus
)

func (s State) String() string {
	switch s {
	case Indeterminate:
		return "Indeterminate"
	case Insecure:
		return "Insecure"
	case Secure:
		return "Secure"
	case Bogus:
		return "Bogus"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BogusReason names why a Bogus verdict was reached.
type BogusReason int

const (
	BogusUnspecified BogusReason = iota
	BogusNoRRSIG
	BogusMissingKey
	BogusSignatureExpired
	BogusSignatureNotYetValid
	BogusInvalidSignature
	BogusNoValidDS
)

func (r BogusReason) String() string {
	switch r {
	case BogusNoRRSIG:
		return "BogusNoRRSIG"
	case BogusMissingKey:
		return "BogusMissingKey"
	case BogusSignatureExpired:
		return "BogusSignatureExpired"
	case BogusSignatureNotYetValid:
		return "BogusSignatureNotYetValid"
	case BogusInvalidSignature:
		return "BogusInvalidSignature"
	case BogusNoValidDS:
		return "BogusNoValidDS"
	default:
		return "BogusUnspecified"
	}
}

// Result pairs a State with, for Bogus, the reason it was reached.
type Result struct {
	State  State
	Reason BogusReason
}

func Ok(s State) Result { return Result{State: s} }

func BogusResult(reason BogusReason) Result { return Result{State: Bogus, Reason: reason} }

// Combine folds a new per-span Result into a running worst-of result,
// following spec.md §4.4 step 9's lattice: any Bogus wins outright; absent
// a Bogus, Insecure + Secure collapses to Insecure (an unsigned span taints
// the overall answer to Insecure); Indeterminate is the weakest element and
// is overridden by anything else observed.
func Combine(acc, next Result) Result {
	switch {
	case acc.State == Bogus:
		return acc
	case next.State == Bogus:
		return next
	case acc.State == Indeterminate:
		return next
	case next.State == Indeterminate:
		return acc
	case acc.State == Insecure || next.State == Insecure:
		return Result{State: Insecure}
	default:
		return Result{State: Secure}
	}
}
